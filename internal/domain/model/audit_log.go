package model

import "time"

// 管理者操作の種類
type AuditAction string

const (
	//通常の遷移表に沿ったステータス更新
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//遷移表を無視した強制変更
	AuditActionOverrideOrderStatus AuditAction = "OVERRIDE_ORDER_STATUS"
	//注文の物理削除
	AuditActionPurgeOrder AuditAction = "PURGE_ORDER"
)

type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	Reason    string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
