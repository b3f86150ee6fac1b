package postgres

import "messaging/backend/internal/domain"

// 以下行模型只用于建表：在领域结构之上声明外键关联，
// 使 AutoMigrate 生成带 ON DELETE CASCADE 的约束。读写仍直接使用领域结构。

type userRow struct {
	domain.User
}

func (userRow) TableName() string { return "users" }

type messageRow struct {
	domain.Message
	Sender *userRow `gorm:"foreignKey:SenderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (messageRow) TableName() string { return "messages" }

type deliveryRow struct {
	domain.DeliveryRecord
	Message   *messageRow `gorm:"foreignKey:MessageID;references:ID;constraint:OnDelete:CASCADE"`
	Recipient *userRow    `gorm:"foreignKey:RecipientID;references:ID;constraint:OnDelete:CASCADE"`
}

func (deliveryRow) TableName() string { return "message_recipients" }
