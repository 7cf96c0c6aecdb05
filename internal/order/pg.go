package order

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the order schema to the database at databaseURL.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const pgUniqueViolation = "23505"

// createRetries bounds id regeneration when a generated RAS id collides.
const createRetries = 5

// PgStore persists orders in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

// NewPgStore constructs a Postgres-backed order store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{Pool: pool}
}

const orderColumns = `id, contact, items, address, coupon_code,
	subtotal, shipping_fee, tax, discount, total, applied_coupon,
	status, notes, created_at, updated_at, estimated_delivery`

// Create inserts the order, regenerating the id on a duplicate-key collision.
func (s *PgStore) Create(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order store not configured")
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, err
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return Order{}, err
	}
	for attempt := 0; attempt < createRetries; attempt++ {
		if o.ID == "" {
			o.ID = NewID()
		}
		_, err := s.Pool.Exec(ctx, `
			INSERT INTO orders (
				id, contact, items, address, coupon_code,
				subtotal, shipping_fee, tax, discount, total, applied_coupon,
				status, notes, created_at, updated_at, estimated_delivery
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			o.ID, o.Contact, itemsJSON, addressJSON, o.CouponCode,
			o.Pricing.Subtotal, o.Pricing.ShippingFee, o.Pricing.Tax,
			o.Pricing.Discount, o.Pricing.Total, o.Pricing.AppliedCoupon,
			string(o.Status), o.Notes, o.CreatedAt, o.UpdatedAt, o.EstimatedDelivery,
		)
		if err == nil {
			return o, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			o.ID = ""
			continue
		}
		return Order{}, err
	}
	return Order{}, errors.New("exhausted order id attempts")
}

// Get loads an order by id.
func (s *PgStore) Get(ctx context.Context, id string) (Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetForContact loads an order only when it belongs to the given contact.
func (s *PgStore) GetForContact(ctx context.Context, id, contact string) (Order, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND contact = $2`, id, contact)
	return scanOrder(row)
}

// ListByContact returns the contact's orders, newest first.
func (s *PgStore) ListByContact(ctx context.Context, contact string, limit, offset int) ([]Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE contact = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, contact, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// UpdateStatus transitions an order from one status to another. The
// compare-and-set form means a concurrent transition loses cleanly.
func (s *PgStore) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (Order, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+orderColumns, string(to), at, id, string(from))
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		// Distinguish a missing order from a lost transition race.
		if _, getErr := s.Get(ctx, id); getErr == nil {
			return Order{}, ErrNotCancellable
		}
		return Order{}, ErrNotFound
	}
	return o, err
}

// Summary aggregates non-cancelled orders for the dashboard.
func (s *PgStore) Summary(ctx context.Context) (SalesSummary, error) {
	var out SalesSummary
	err := s.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> $1),
			COALESCE(SUM(total) FILTER (WHERE status <> $1), 0),
			COUNT(*) FILTER (WHERE status = $1)
		FROM orders`, string(StatusCancelled)).
		Scan(&out.Orders, &out.Revenue, &out.CancelledOrders)
	if err != nil {
		return SalesSummary{}, err
	}
	if out.Orders > 0 {
		out.AverageOrder = out.Revenue / out.Orders
	}
	return out, nil
}

// TopProducts ranks products by units sold across non-cancelled orders.
func (s *PgStore) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT
			item->>'productId',
			MAX(item->>'name'),
			SUM((item->>'qty')::bigint),
			SUM((item->>'qty')::bigint * (item->>'unitPrice')::bigint)
		FROM orders, jsonb_array_elements(items) AS item
		WHERE status <> $1
		GROUP BY item->>'productId'
		ORDER BY 3 DESC
		LIMIT $2`, string(StatusCancelled), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Units, &ps.Revenue); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// Recent returns the newest orders regardless of contact.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o           Order
		itemsJSON   []byte
		addressJSON []byte
		status      string
	)
	err := row.Scan(
		&o.ID, &o.Contact, &itemsJSON, &addressJSON, &o.CouponCode,
		&o.Pricing.Subtotal, &o.Pricing.ShippingFee, &o.Pricing.Tax,
		&o.Pricing.Discount, &o.Pricing.Total, &o.Pricing.AppliedCoupon,
		&status, &o.Notes, &o.CreatedAt, &o.UpdatedAt, &o.EstimatedDelivery,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order %s items: %w", o.ID, err)
	}
	if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
		return Order{}, fmt.Errorf("decode order %s address: %w", o.ID, err)
	}
	o.Status = Status(status)
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
