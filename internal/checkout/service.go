package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/rasoiyaa/backend-store/internal/cart"
	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/notify"
	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError carries per-field messages for a rejected address.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkout input: %d field(s)", len(e.Fields))
}

// AddressInput is the shipping destination submitted at checkout.
type AddressInput struct {
	Name    string `json:"name" validate:"required,min=2"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,len=10,numeric"`
	Line1   string `json:"line1" validate:"required,min=5"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6"`
}

// Input is the checkout request.
type Input struct {
	CartID  string       `json:"cartId" validate:"required"`
	Address AddressInput `json:"address"`
	Notes   string       `json:"notes" validate:"max=500"`
}

// Service turns a cart into a persisted order.
type Service struct {
	Carts    *cart.Service
	Orders   order.Store
	Catalog  *catalog.Store
	Engine   pricing.Engine
	Validate *validator.Validate
	Mail     *notify.Enqueuer
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// validateInput runs struct validation plus the pincode shape check and
// folds the results into field-keyed messages.
func (s *Service) validateInput(in Input) error {
	fields := map[string]string{}
	if err := s.Validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fieldName(fe)] = messageFor(fe)
			}
		} else {
			return err
		}
	}
	if _, seen := fields["pincode"]; !seen {
		if err := pricing.ValidatePostalCode(in.Address.Pincode); err != nil {
			fields["pincode"] = "pincode must be six digits and not start with 0"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Place prices the cart against the destination pincode, persists the order
// with the computed numbers attached, clears the cart and queues the
// confirmation email. The contact on the order is the authenticated contact
// when present, otherwise the address email (guest checkout).
func (s *Service) Place(ctx context.Context, contact string, in Input) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return order.Order{}, errors.New("checkout service not configured")
	}
	if err := s.validateInput(in); err != nil {
		return order.Order{}, err
	}

	c, err := s.Carts.Get(ctx, in.CartID)
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Items) == 0 {
		return order.Order{}, ErrEmptyCart
	}
	for _, it := range c.Items {
		product, ok := s.Catalog.Get(it.ProductID)
		if !ok {
			return order.Order{}, pricing.ErrUnknownProduct
		}
		if !product.Orderable() {
			return order.Order{}, fmt.Errorf("%w: %s", cart.ErrUnavailable, it.ProductID)
		}
	}

	result, err := s.Engine.Quote(c.LineItems(), in.Address.Pincode, c.CouponCode)
	if err != nil {
		// A coupon that stopped validating drops off the order; everything
		// else aborts the checkout.
		if !errors.Is(err, pricing.ErrUnknownCoupon) && !errors.Is(err, pricing.ErrBelowMinimumOrder) {
			return order.Order{}, err
		}
		c.CouponCode = ""
	}

	if contact == "" {
		contact = strings.ToLower(strings.TrimSpace(in.Address.Email))
	}
	now := s.now()
	items := make([]order.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Qty:       it.Qty,
		})
	}
	placed, err := s.Orders.Create(ctx, order.Order{
		Contact: contact,
		Items:   items,
		Address: order.Address{
			Name:    strings.TrimSpace(in.Address.Name),
			Email:   strings.ToLower(strings.TrimSpace(in.Address.Email)),
			Phone:   in.Address.Phone,
			Line1:   strings.TrimSpace(in.Address.Line1),
			Line2:   strings.TrimSpace(in.Address.Line2),
			City:    strings.TrimSpace(in.Address.City),
			State:   strings.TrimSpace(in.Address.State),
			Pincode: in.Address.Pincode,
		},
		CouponCode:        c.CouponCode,
		Pricing:           result,
		Status:            order.StatusConfirmed,
		Notes:             strings.TrimSpace(in.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
		EstimatedDelivery: order.EstimatedDelivery(now),
	})
	if err != nil {
		return order.Order{}, err
	}

	// Cart cleanup and email are best-effort; the order already exists.
	_ = s.Carts.Clear(ctx, c.ID)
	s.Mail.EnqueueOrderConfirmation(ctx, placed)
	return placed, nil
}

func fieldName(fe validator.FieldError) string {
	// Namespace looks like Input.Address.Pincode; report the leaf in camelCase.
	parts := strings.Split(fe.Namespace(), ".")
	leaf := parts[len(parts)-1]
	return strings.ToLower(leaf[:1]) + leaf[1:]
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	default:
		return "is invalid"
	}
}
