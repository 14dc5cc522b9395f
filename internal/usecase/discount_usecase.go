package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

var (
	codePattern = regexp.MustCompile(`^[A-Z0-9]{3,50}$`)
	hundred     = decimal.NewFromInt(100)
)

type DiscountUsecase struct {
	discounts repo.DiscountRepository
	products  repo.ProductRepository
	now       func() time.Time
	log       *zap.Logger
}

func NewDiscountUsecase(discounts repo.DiscountRepository, products repo.ProductRepository, log *zap.Logger) *DiscountUsecase {
	return &DiscountUsecase{discounts: discounts, products: products, now: time.Now, log: log}
}

// 判定に使うカートの情報。カテゴリは商品からサーバー側で引く。
type DiscountInput struct {
	Code     string
	Subtotal decimal.Decimal
	Products []model.ProductRef
}

type DiscountQuote struct {
	Code           string             `json:"code"`
	Type           model.DiscountType `json:"type"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	FinalAmount    decimal.Decimal    `json:"final_amount"`
}

// 使えるかと割引額だけ返す。used_countは変えない。
func (u *DiscountUsecase) Validate(ctx context.Context, in DiscountInput) (DiscountQuote, error) {
	q, _, err := u.evaluate(ctx, u.discounts, u.products, in)
	return q, err
}

// Validateと同じ判定のあと、used_countを1つ進める
func (u *DiscountUsecase) Apply(ctx context.Context, in DiscountInput) (DiscountQuote, error) {
	return u.applyWith(ctx, u.discounts, u.products, in)
}

// 注文Txの中からはTxのrepoを渡す
func (u *DiscountUsecase) applyWith(ctx context.Context, discounts repo.DiscountRepository, products repo.ProductRepository, in DiscountInput) (DiscountQuote, error) {
	q, d, err := u.evaluate(ctx, discounts, products, in)
	if err != nil {
		return DiscountQuote{}, err
	}

	ok, err := discounts.IncrementUsage(ctx, d.ID, u.now())
	if err != nil {
		return DiscountQuote{}, internalError(u.log, "discount.apply", err, zap.String("code", d.Code))
	}
	if !ok {
		// 判定後に他の注文が最後の枠を使った
		return DiscountQuote{}, errCodeUnusable("usage_limit_reached", "discount code usage limit reached")
	}
	return q, nil
}

// 上から順に判定して最初の失敗で止める
func (u *DiscountUsecase) evaluate(ctx context.Context, discounts repo.DiscountRepository, products repo.ProductRepository, in DiscountInput) (DiscountQuote, model.DiscountCode, error) {
	code := NormalizeCode(in.Code)
	if !codePattern.MatchString(code) {
		return DiscountQuote{}, model.DiscountCode{}, errValidation("malformed_code", "discount code must be 3-50 letters or digits")
	}
	if !in.Subtotal.IsPositive() {
		return DiscountQuote{}, model.DiscountCode{}, errValidation("non_positive_subtotal", "subtotal must be greater than 0")
	}

	d, err := discounts.FindByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return DiscountQuote{}, model.DiscountCode{}, errNotFound("code_not_found", "discount code not found")
	}
	if err != nil {
		return DiscountQuote{}, model.DiscountCode{}, internalError(u.log, "discount.find", err, zap.String("code", code))
	}

	if err := checkUsable(d, u.now()); err != nil {
		return DiscountQuote{}, model.DiscountCode{}, err
	}

	refs := make([]model.ProductRef, 0, len(in.Products))
	for _, ref := range in.Products {
		refs = append(refs, ref.Normalize())
	}

	var categoryIDs []int64
	if len(d.ApplicableCategoryIDs) > 0 {
		categoryIDs, err = categoriesOf(ctx, products, refs)
		if err != nil {
			return DiscountQuote{}, model.DiscountCode{}, internalError(u.log, "discount.categories", err, zap.String("code", code))
		}
	}

	if !isApplicable(d, refs, categoryIDs) {
		return DiscountQuote{}, model.DiscountCode{}, NewAppError(KindNotApplicableToCart, "not_applicable", "discount code does not apply to these items")
	}

	if d.MinimumAmount.Valid && in.Subtotal.LessThan(d.MinimumAmount.Decimal) {
		return DiscountQuote{}, model.DiscountCode{}, NewAppError(KindBelowMinimum, "below_minimum", "subtotal is below the minimum amount").
			With("minimum_amount", d.MinimumAmount.Decimal.StringFixed(2)).
			With("subtotal", in.Subtotal.StringFixed(2))
	}

	amount := discountAmount(d, in.Subtotal)
	if !amount.IsPositive() {
		return DiscountQuote{}, model.DiscountCode{}, NewAppError(KindNoEffectiveDiscount, "no_effective_discount", "discount code gives no discount for this order")
	}

	return DiscountQuote{
		Code:           d.Code,
		Type:           d.Type,
		DiscountAmount: amount,
		FinalAmount:    in.Subtotal.Sub(amount),
	}, d, nil
}

// 大文字・前後空白なし
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func checkUsable(d model.DiscountCode, now time.Time) error {
	if d.IsValid(now) {
		return nil
	}
	switch {
	case !d.IsActive:
		return errCodeUnusable("inactive", "discount code is inactive")
	case now.Before(d.StartsAt):
		return errCodeUnusable("not_started", "discount code is not active yet").
			With("starts_at", d.StartsAt)
	case now.After(d.ExpiresAt):
		return errCodeUnusable("expired", "discount code has expired").
			With("expires_at", d.ExpiresAt)
	default:
		return errCodeUnusable("usage_limit_reached", "discount code usage limit reached")
	}
}

// 空の集合は全対象。両方あるときは両方に当たる必要がある。
func isApplicable(d model.DiscountCode, products []model.ProductRef, categoryIDs []int64) bool {
	if len(d.ApplicableProducts) > 0 && !intersects(d.ApplicableProducts, products) {
		return false
	}
	if len(d.ApplicableCategoryIDs) > 0 && !intersects(d.ApplicableCategoryIDs, categoryIDs) {
		return false
	}
	return true
}

// カート商品のカテゴリ。見つからない商品は数えない。
func categoriesOf(ctx context.Context, products repo.ProductRepository, refs []model.ProductRef) ([]int64, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	found, err := products.FindByRefs(ctx, refs)
	if err != nil {
		return nil, errors.Wrap(err, "find cart products")
	}
	ids := make([]int64, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.CategoryID)
	}
	return ids, nil
}

func intersects[T comparable](allowed, got []T) bool {
	set := make(map[T]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	for _, g := range got {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

// 0〜subtotalに収めて小数2桁に丸める
func discountAmount(d model.DiscountCode, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case model.DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(hundred)
	case model.DiscountFixed:
		amount = d.Value
	default:
		return decimal.Zero
	}

	amount = decimal.Min(amount.Round(2), subtotal)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func errCodeUnusable(reason, message string) *AppError {
	return NewAppError(KindCodeExpiredOrInactive, reason, message)
}
