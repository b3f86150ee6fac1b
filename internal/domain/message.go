package domain

import "time"

// Message 表示一次发送产生的消息记录，由发送事务创建一次，之后不可变。
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SenderID  string    `json:"senderId" gorm:"type:varchar(36);index;not null"`
	Subject   *string   `json:"subject" gorm:"type:varchar(500)"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index;not null"`
}
