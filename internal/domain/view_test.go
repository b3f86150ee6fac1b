package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortInbox(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readEarly := base.Add(1 * time.Hour)
	readLate := base.Add(5 * time.Hour)

	items := []InboxItem{
		{MessageID: "old-read", Timestamp: base, ReadStatus: ReadStatus{IsRead: true, ReadAt: &readEarly, DeliveryRecordID: "d1"}},
		{MessageID: "old-unread", Timestamp: base, ReadStatus: ReadStatus{DeliveryRecordID: "d2"}},
		{MessageID: "new-read", Timestamp: base.Add(2 * time.Hour), ReadStatus: ReadStatus{IsRead: true, ReadAt: &readLate, DeliveryRecordID: "d3"}},
		{MessageID: "new-unread", Timestamp: base.Add(3 * time.Hour), ReadStatus: ReadStatus{DeliveryRecordID: "d4"}},
	}

	SortInbox(items)

	order := make([]string, 0, len(items))
	for _, item := range items {
		order = append(order, item.MessageID)
	}
	assert.Equal(t, []string{"new-unread", "old-unread", "new-read", "old-read"}, order)
}

func TestSortInbox_UnreadFirstRegardlessOfTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readAt := base.Add(48 * time.Hour)

	items := []InboxItem{
		{MessageID: "read", Timestamp: base.Add(24 * time.Hour), ReadStatus: ReadStatus{IsRead: true, ReadAt: &readAt}},
		{MessageID: "unread", Timestamp: base},
	}

	SortInbox(items)
	assert.Equal(t, "unread", items[0].MessageID)
}

func TestMessageView_RecipientIDs(t *testing.T) {
	view := MessageView{Recipients: []RecipientDelivery{
		{Recipient: UserSummary{ID: "u2"}},
		{Recipient: UserSummary{ID: "u3"}},
	}}
	assert.Equal(t, []string{"u2", "u3"}, view.RecipientIDs())
}
