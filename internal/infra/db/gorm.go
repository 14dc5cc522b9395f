package db

import (
	"github.com/go-faster/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ecshop/internal/domain/model"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return db, nil
}

// Migrate はテーブルを作成・更新する。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.DiscountCode{},
		&model.Order{},
		&model.OrderItem{},
		&model.Notification{},
		&model.AuditLog{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}
