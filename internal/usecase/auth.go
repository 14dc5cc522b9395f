package usecase

import "ecshop/internal/domain/model"

// リクエスト単位の呼び出し元。middlewareで一度だけ作ってusecaseに渡す。
type AuthContext struct {
	UserID int64
	Role   model.Role
}

func (a AuthContext) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func requireUser(auth AuthContext) error {
	if auth.UserID <= 0 {
		return errUnauthorized()
	}
	return nil
}

func requireAdmin(auth AuthContext) error {
	if err := requireUser(auth); err != nil {
		return err
	}
	if !auth.IsAdmin() {
		return errForbidden()
	}
	return nil
}
