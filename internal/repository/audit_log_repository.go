package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 1リソース分の監査ログを引く条件
type AuditLogFilter struct {
	ResourceType model.AuditResourceType
	ResourceID   int64
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
