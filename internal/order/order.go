package order

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Status tracks an order through fulfilment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound indicates the order does not exist or belongs to someone else.
var ErrNotFound = errors.New("order not found")

// ErrNotCancellable is returned when cancelling an order that has already
// shipped, been delivered, or been cancelled.
var ErrNotCancellable = errors.New("order can no longer be cancelled")

// deliveryLeadTime is the promised delivery window from order placement.
const deliveryLeadTime = 3 * 24 * time.Hour

// Address is the shipping destination captured at checkout.
type Address struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Item is an order line frozen at checkout time.
type Item struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int           `json:"qty"`
}

// Order is the persisted record of a completed checkout. Pricing holds the
// numbers computed at placement; invoices and order views replay these stored
// figures rather than repricing.
type Order struct {
	ID                string         `json:"id"`
	Contact           string         `json:"contact"`
	Items             []Item         `json:"items"`
	Address           Address        `json:"address"`
	CouponCode        string         `json:"couponCode,omitempty"`
	Pricing           pricing.Result `json:"pricing"`
	Status            Status         `json:"status"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
}

// Cancellable reports whether the order may still be cancelled by the buyer.
func (o Order) Cancellable() bool {
	return o.Status == StatusConfirmed
}

// fulfilmentFlow maps each forward fulfilment status to the status an order
// must currently hold to reach it. Cancellation is handled separately and
// only from confirmed.
var fulfilmentFlow = map[Status]Status{
	StatusShipped:   StatusConfirmed,
	StatusDelivered: StatusShipped,
}

// FulfilmentFrom returns the status an order must be in before it can move to
// target, and whether target is a valid forward fulfilment step.
func FulfilmentFrom(target Status) (Status, bool) {
	from, ok := fulfilmentFlow[target]
	return from, ok
}

// TrackStep is one entry in the buyer-facing tracking timeline.
type TrackStep struct {
	Status Status     `json:"status"`
	Done   bool       `json:"done"`
	At     *time.Time `json:"at,omitempty"`
}

// Timeline derives the tracking timeline from the order's status and
// timestamps. Only the placement time and the time of the latest transition
// are stored, so intermediate steps carry no timestamp of their own.
func (o Order) Timeline() []TrackStep {
	placed := o.CreatedAt
	updated := o.UpdatedAt
	if o.Status == StatusCancelled {
		return []TrackStep{
			{Status: StatusConfirmed, Done: true, At: &placed},
			{Status: StatusCancelled, Done: true, At: &updated},
		}
	}
	steps := []TrackStep{
		{Status: StatusConfirmed, Done: true, At: &placed},
		{Status: StatusShipped},
		{Status: StatusDelivered},
	}
	switch o.Status {
	case StatusShipped:
		steps[1].Done = true
		steps[1].At = &updated
	case StatusDelivered:
		steps[1].Done = true
		steps[2].Done = true
		steps[2].At = &updated
	}
	return steps
}

var idPattern = regexp.MustCompile(`^RAS[0-9]{6}$`)

// NewID generates a customer-facing order id like RAS482913. Collisions are
// possible in the 6-digit space; stores retry on a duplicate key.
func NewID() string {
	return fmt.Sprintf("RAS%06d", 100000+rand.Intn(900000))
}

// ValidID reports whether s looks like an order id.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// EstimatedDelivery returns the promised delivery date for an order placed at
// the given time.
func EstimatedDelivery(placedAt time.Time) time.Time {
	return placedAt.Add(deliveryLeadTime)
}
