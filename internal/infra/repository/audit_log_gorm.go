package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return errors.Wrap(err, "create audit log")
	}
	return nil
}

func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := max(filter.Offset, 0)

	logs := []model.AuditLog{}
	if err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", filter.ResourceType, filter.ResourceID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, "list audit logs")
	}
	return logs, nil
}
