package model

import "time"

type NotificationType string

const (
	NotificationOrderCreated       NotificationType = "order_created"
	NotificationOrderCancelled     NotificationType = "order_cancelled"
	NotificationOrderStatusChanged NotificationType = "order_status_changed"
)

// ユーザー向け通知。配信は外部に任せ、ここでは記録だけする。
type Notification struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64            `gorm:"not null;index" json:"user_id"`
	Type        NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Title       string           `gorm:"type:varchar(255);not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	OrderNumber string           `gorm:"type:varchar(64);index" json:"order_number"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
