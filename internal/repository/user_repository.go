package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type UserRepository interface {
	// 見つからなければErrNotFound
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}
