package usecase

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

const (
	maxColorLen = 64
	maxSizeLen  = 32
)

// CartUsecase は /cart の業務ロジックです。
// 明細はユーザーに直接ぶら下がり、価格は持たない（表示時に商品から引く）。
type CartUsecase struct {
	items    repo.CartItemRepository
	products repo.ProductRepository
	log      *zap.Logger
}

func NewCartUsecase(items repo.CartItemRepository, products repo.ProductRepository, log *zap.Logger) *CartUsecase {
	return &CartUsecase{items: items, products: products, log: log}
}

type AddCartInput struct {
	Product  model.ProductRef
	Quantity int64
	Color    string
	Size     string
}

// 表示用の明細。商品情報は今のカタログの値。
type CartLineView struct {
	ID            int64            `json:"id"`
	Product       model.ProductRef `json:"product"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	ImageURL      string           `json:"image_url"`
	StockQuantity int64            `json:"stock_quantity"`
	IsActive      bool             `json:"is_active"`
	Color         string           `json:"color"`
	Size          string           `json:"size"`
	Quantity      int64            `json:"quantity"`
	LineSubtotal  decimal.Decimal  `json:"line_subtotal"`
}

type CartView struct {
	Items    []CartLineView  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartLineUpdate struct {
	Item    *model.CartItem `json:"item,omitempty"`
	Removed bool            `json:"removed"`
}

type CartCount struct {
	Lines    int64 `json:"lines"`
	Quantity int64 `json:"quantity"`
}

// カート表示。明細ごとに今の商品情報を結合する。
func (u *CartUsecase) List(ctx context.Context, auth AuthContext) (CartView, error) {
	if err := requireUser(auth); err != nil {
		return CartView{}, err
	}

	lines, err := u.items.ListByUserID(ctx, auth.UserID)
	if err != nil {
		return CartView{}, internalError(u.log, "cart.list", err, zap.Int64("user_id", auth.UserID))
	}

	refs := make([]model.ProductRef, 0, len(lines))
	for _, l := range lines {
		refs = append(refs, l.Ref())
	}
	products, err := u.products.FindByRefs(ctx, refs)
	if err != nil {
		return CartView{}, internalError(u.log, "cart.list", err, zap.Int64("user_id", auth.UserID))
	}
	byRef := make(map[model.ProductRef]model.Product, len(products))
	for _, p := range products {
		byRef[p.Ref()] = p
	}

	view := CartView{Items: make([]CartLineView, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		p, ok := byRef[l.Ref()]
		if !ok {
			// 商品が消えた明細は出さない
			u.log.Warn("cart line without product",
				zap.Int64("user_id", auth.UserID), zap.Int64("line_id", l.ID),
				zap.Int64("product_id", l.ProductID), zap.String("partition", string(l.Partition)))
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(l.Quantity))
		view.Items = append(view.Items, CartLineView{
			ID:            l.ID,
			Product:       l.Ref(),
			Name:          p.Name,
			Price:         p.Price,
			ImageURL:      p.ImageURL,
			StockQuantity: p.StockQuantity,
			IsActive:      p.IsActive,
			Color:         l.Color,
			Size:          l.Size,
			Quantity:      l.Quantity,
			LineSubtotal:  sub,
		})
		view.Subtotal = view.Subtotal.Add(sub)
	}
	return view, nil
}

// カートに追加（同じ商品・色・サイズは数量加算）
func (u *CartUsecase) Add(ctx context.Context, auth AuthContext, in AddCartInput) (model.CartItem, error) {
	if err := requireUser(auth); err != nil {
		return model.CartItem{}, err
	}
	if in.Quantity < 1 {
		return model.CartItem{}, errValidation("invalid_quantity", "quantity must be at least 1")
	}
	color, size, err := normalizeVariant(in.Color, in.Size)
	if err != nil {
		return model.CartItem{}, err
	}
	in.Product = in.Product.Normalize()

	// 商品チェック（公開のみ）
	if _, err := lookupActiveProduct(ctx, u.products, u.log, in.Product); err != nil {
		return model.CartItem{}, err
	}

	key := model.CartKey{UserID: auth.UserID, Product: in.Product, Color: color, Size: size}
	res, err := u.items.AddOrMerge(ctx, key, in.Quantity)
	switch {
	case err == nil:
		return res.Item, nil
	case errors.Is(err, repo.ErrStockExceeded):
		return model.CartItem{}, errStockExceeded(res.Stock, res.Item.Quantity+in.Quantity).
			With("current_quantity", res.Item.Quantity)
	case errors.Is(err, repo.ErrNotFound):
		return model.CartItem{}, errProductNotFound(in.Product)
	default:
		return model.CartItem{}, internalError(u.log, "cart.add", err, zap.Int64("user_id", auth.UserID))
	}
}

// 数量変更。0以下なら削除してRemoved=true。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, auth AuthContext, lineID int64, qty int64) (CartLineUpdate, error) {
	if err := requireUser(auth); err != nil {
		return CartLineUpdate{}, err
	}
	if lineID <= 0 {
		return CartLineUpdate{}, errValidation("invalid_id", "invalid id")
	}

	if qty <= 0 {
		if err := u.Remove(ctx, auth, lineID); err != nil {
			return CartLineUpdate{}, err
		}
		return CartLineUpdate{Removed: true}, nil
	}

	res, err := u.items.SetQuantity(ctx, auth.UserID, lineID, qty)
	switch {
	case err == nil:
		return CartLineUpdate{Item: &res.Item}, nil
	case errors.Is(err, repo.ErrStockExceeded):
		return CartLineUpdate{}, errStockExceeded(res.Stock, qty).
			With("current_quantity", res.Item.Quantity)
	case errors.Is(err, repo.ErrNotFound):
		return CartLineUpdate{}, u.missingOnUpdate(ctx, auth, lineID)
	default:
		return CartLineUpdate{}, internalError(u.log, "cart.update", err, zap.Int64("user_id", auth.UserID))
	}
}

// 明細が無いのか、明細の商品が消えたのかを分ける
func (u *CartUsecase) missingOnUpdate(ctx context.Context, auth AuthContext, lineID int64) error {
	line, err := u.items.FindByID(ctx, auth.UserID, lineID)
	if errors.Is(err, repo.ErrNotFound) {
		return errCartLineNotFound()
	}
	if err != nil {
		return internalError(u.log, "cart.update", err, zap.Int64("user_id", auth.UserID))
	}
	return errProductNotFound(line.Ref())
}

func (u *CartUsecase) Remove(ctx context.Context, auth AuthContext, lineID int64) error {
	if err := requireUser(auth); err != nil {
		return err
	}
	if lineID <= 0 {
		return errValidation("invalid_id", "invalid id")
	}

	err := u.items.Delete(ctx, auth.UserID, lineID)
	if errors.Is(err, repo.ErrNotFound) {
		return errCartLineNotFound()
	}
	if err != nil {
		return internalError(u.log, "cart.remove", err, zap.Int64("user_id", auth.UserID))
	}
	return nil
}

// 全削除して消した件数を返す
func (u *CartUsecase) Clear(ctx context.Context, auth AuthContext) (int64, error) {
	if err := requireUser(auth); err != nil {
		return 0, err
	}

	n, err := u.items.ClearByUserID(ctx, auth.UserID)
	if err != nil {
		return 0, internalError(u.log, "cart.clear", err, zap.Int64("user_id", auth.UserID))
	}
	u.log.Info("cart cleared", zap.Int64("user_id", auth.UserID), zap.Int64("removed", n))
	return n, nil
}

func (u *CartUsecase) Count(ctx context.Context, auth AuthContext) (CartCount, error) {
	if err := requireUser(auth); err != nil {
		return CartCount{}, err
	}

	lines, qty, err := u.items.CountByUserID(ctx, auth.UserID)
	if err != nil {
		return CartCount{}, internalError(u.log, "cart.count", err, zap.Int64("user_id", auth.UserID))
	}
	return CartCount{Lines: lines, Quantity: qty}, nil
}

func normalizeVariant(color, size string) (string, string, error) {
	color = strings.TrimSpace(color)
	size = strings.TrimSpace(size)
	if len(color) > maxColorLen {
		return "", "", errValidation("invalid_color", "color is too long")
	}
	if len(size) > maxSizeLen {
		return "", "", errValidation("invalid_size", "size is too long")
	}
	return color, size, nil
}

func errStockExceeded(available, requested int64) *AppError {
	return NewAppError(KindStockExceeded, "stock_exceeded", "requested quantity exceeds available stock").
		With("available_stock", available).
		With("requested_quantity", requested)
}

func errCartLineNotFound() *AppError {
	return errNotFound("cart_line_not_found", "cart item not found")
}
