package domain

import "github.com/samber/lo"

// NormalizeRecipients 对收件人列表去重并移除发件人自身。
// 保留每个 ID 首次出现的顺序。
func NormalizeRecipients(senderID string, recipientIDs []string) []string {
	return lo.Without(lo.Uniq(recipientIDs), senderID)
}
