package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnavailable is returned when adding a product that cannot be ordered.
var ErrUnavailable = errors.New("product unavailable")

// Item is one line in a cart. Name and UnitPrice are denormalised from the
// catalog at add time for display; pricing always re-resolves through the
// catalog so a stale snapshot cannot change what the buyer pays.
type Item struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int           `json:"qty"`
}

// Cart is the buyer's working order, stored as a JSON document in Redis
// with a sliding TTL.
type Cart struct {
	ID         string    `json:"id"`
	Contact    string    `json:"contact,omitempty"`
	AnonID     string    `json:"anonId,omitempty"`
	Items      []Item    `json:"items"`
	CouponCode string    `json:"couponCode,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LineItems projects the cart into pricing pipeline inputs.
func (c Cart) LineItems() []pricing.LineItem {
	items := make([]pricing.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.LineItem{ProductID: it.ProductID, Qty: it.Qty})
	}
	return items
}

// Service encapsulates cart domain operations.
type Service struct {
	R       *redis.Client
	Catalog *catalog.Store
	Engine  pricing.Engine
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func cartKey(id string) string { return "cart:" + id }

func contactKey(contact string) string { return "cart:contact:" + contact }

// Create starts a new guest cart.
func (s *Service) Create(ctx context.Context, anonID string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if anonID == "" {
		anonID = uuid.NewString()
	}
	now := s.now()
	cart := Cart{
		ID:        uuid.NewString(),
		AnonID:    anonID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// EnsureForContact loads the contact's active cart, creating one when absent.
func (s *Service) EnsureForContact(ctx context.Context, contact string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if contact == "" {
		return Cart{}, fmt.Errorf("contact required: %w", ErrInvalidInput)
	}
	id, err := s.R.Get(ctx, contactKey(contact)).Result()
	if err == nil && id != "" {
		cart, err := s.Get(ctx, id)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Cart{}, err
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return Cart{}, err
	}
	now := s.now()
	cart := Cart{
		ID:        uuid.NewString(),
		Contact:   contact,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return Cart{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return cart, nil
}

func (s *Service) save(ctx context.Context, cart Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	ttl := s.ttl()
	if err := s.R.Set(ctx, cartKey(cart.ID), data, ttl).Err(); err != nil {
		return err
	}
	if cart.Contact != "" {
		return s.R.Set(ctx, contactKey(cart.Contact), cart.ID, ttl).Err()
	}
	return nil
}

// AddItem inserts or increments a line item after validating the product and
// the quantity bounds.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("%w: qty %d", pricing.ErrInvalidQuantity, qty)
	}
	product, ok := s.Catalog.Get(productID)
	if !ok {
		return Cart{}, pricing.ErrUnknownProduct
	}
	if !product.Orderable() {
		return Cart{}, fmt.Errorf("%w: %s", ErrUnavailable, productID)
	}
	maxQty := s.Engine.MaxQtyPerItem
	if maxQty <= 0 {
		maxQty = 10
	}
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			newQty := cart.Items[i].Qty + qty
			if newQty > maxQty {
				return Cart{}, fmt.Errorf("%w: qty %d exceeds max %d", pricing.ErrInvalidQuantity, newQty, maxQty)
			}
			cart.Items[i].Qty = newQty
			found = true
			break
		}
	}
	if !found {
		if qty > maxQty {
			return Cart{}, fmt.Errorf("%w: qty %d exceeds max %d", pricing.ErrInvalidQuantity, qty, maxQty)
		}
		cart.Items = append(cart.Items, Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Qty:       qty,
		})
	}
	cart.UpdatedAt = s.now()
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// UpdateQty sets the quantity for an existing line item.
func (s *Service) UpdateQty(ctx context.Context, cartID, productID string, qty int) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	maxQty := s.Engine.MaxQtyPerItem
	if maxQty <= 0 {
		maxQty = 10
	}
	if qty <= 0 || qty > maxQty {
		return Cart{}, fmt.Errorf("%w: qty %d", pricing.ErrInvalidQuantity, qty)
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Qty = qty
			cart.UpdatedAt = s.now()
			if err := s.save(ctx, cart); err != nil {
				return Cart{}, err
			}
			return cart, nil
		}
	}
	return Cart{}, ErrNotFound
}

// RemoveItem deletes a line item.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	items := cart.Items[:0]
	removed := false
	for _, it := range cart.Items {
		if it.ProductID == productID {
			removed = true
			continue
		}
		items = append(items, it)
	}
	if !removed {
		return Cart{}, ErrNotFound
	}
	cart.Items = items
	cart.UpdatedAt = s.now()
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// ApplyCoupon validates the code against the current subtotal and stores it
// on the cart. Applying a new code replaces any previous one; coupons never
// stack. A failed validation leaves the cart untouched.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (Cart, pricing.Result, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, pricing.Result{}, err
	}
	normalized := pricing.NormalizeCouponCode(code)
	if normalized == "" {
		return Cart{}, pricing.Result{}, fmt.Errorf("coupon code required: %w", ErrInvalidInput)
	}
	result, err := s.Engine.Quote(cart.LineItems(), "", normalized)
	if err != nil {
		return Cart{}, pricing.Result{}, err
	}
	cart.CouponCode = normalized
	cart.UpdatedAt = s.now()
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, pricing.Result{}, err
	}
	return cart, result, nil
}

// RemoveCoupon clears an applied coupon.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	cart.CouponCode = ""
	cart.UpdatedAt = s.now()
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Quote prices the cart through the shared engine. The stored coupon is
// re-validated on every call; when it no longer applies (items removed below
// the threshold, say) the result comes back without the discount and the
// coupon error is surfaced.
func (s *Service) Quote(ctx context.Context, cart Cart, postalCode string) (pricing.Result, error) {
	return s.Engine.Quote(cart.LineItems(), postalCode, cart.CouponCode)
}

// Merge moves guest cart items into the contact's active cart. Quantities
// are merged up to the per-item maximum; the guest cart is removed.
func (s *Service) Merge(ctx context.Context, guestCartID, contact string) (Cart, error) {
	guest, err := s.Get(ctx, guestCartID)
	if err != nil {
		return Cart{}, err
	}
	target, err := s.EnsureForContact(ctx, contact)
	if err != nil {
		return Cart{}, err
	}
	if guest.ID == target.ID {
		return target, nil
	}
	maxQty := s.Engine.MaxQtyPerItem
	if maxQty <= 0 {
		maxQty = 10
	}
	for _, item := range guest.Items {
		merged := false
		for i := range target.Items {
			if target.Items[i].ProductID == item.ProductID {
				combined := target.Items[i].Qty + item.Qty
				if combined > maxQty {
					combined = maxQty
				}
				target.Items[i].Qty = combined
				merged = true
				break
			}
		}
		if !merged {
			target.Items = append(target.Items, item)
		}
	}
	if target.CouponCode == "" {
		target.CouponCode = guest.CouponCode
	}
	target.UpdatedAt = s.now()
	if err := s.save(ctx, target); err != nil {
		return Cart{}, err
	}
	_ = s.R.Del(ctx, cartKey(guest.ID)).Err()
	return target, nil
}

// Clear deletes a cart outright, used after a successful checkout.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	if s == nil || s.R == nil {
		return errors.New("cart service not configured")
	}
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if cart.Contact != "" {
		_ = s.R.Del(ctx, contactKey(cart.Contact)).Err()
	}
	return s.R.Del(ctx, cartKey(cartID)).Err()
}
