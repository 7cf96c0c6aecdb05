package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/config"
	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
)

// Seeds demo orders so the admin dashboard has something to show on a fresh
// database. The catalog itself ships embedded in the binary and needs no
// seeding.
func main() {
	listOnly := flag.Bool("list", false, "print the embedded catalog and exit")
	count := flag.Int("orders", 8, "number of demo orders to create")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	store, err := catalog.NewStore()
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	if *listOnly {
		for _, p := range store.List(catalog.Filter{}) {
			fmt.Printf("%-24s %-16s ₹%d (%s)\n", p.ID, p.Category, p.Price, p.Availability)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := order.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	engine := cfg.PricingEngine(store)
	orders := order.NewPgStore(pool)

	buyers := []struct {
		name    string
		email   string
		pincode string
	}{
		{"Asha Verma", "asha@example.com", "485001"},
		{"Rohan Gupta", "rohan@example.com", "110001"},
		{"Meera Singh", "meera@example.com", "485001"},
		{"Kabir Shah", "kabir@example.com", "400050"},
	}
	coupons := []string{"", "WELCOME10", "", "SAVE50"}

	products := store.List(catalog.Filter{Availability: catalog.InStock})
	if len(products) == 0 {
		log.Fatal("catalog has no in-stock products")
	}

	created := 0
	for i := 0; i < *count; i++ {
		buyer := buyers[i%len(buyers)]
		items := []order.Item{}
		lines := []pricing.LineItem{}
		for j := 0; j < 1+i%3; j++ {
			p := products[(i+j)%len(products)]
			qty := 1 + (i+j)%3
			items = append(items, order.Item{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Qty: qty})
			lines = append(lines, pricing.LineItem{ProductID: p.ID, Qty: qty})
		}

		code := coupons[i%len(coupons)]
		quote, err := engine.Quote(lines, buyer.pincode, code)
		if err != nil {
			// Coupon minimums depend on the basket; fall back to no coupon.
			code = ""
			if quote, err = engine.Quote(lines, buyer.pincode, ""); err != nil {
				log.Fatalf("quote demo order: %v", err)
			}
		}

		placedAt := time.Now().UTC().Add(-time.Duration(i*7) * time.Hour)
		o := order.Order{
			ID:      order.NewID(),
			Contact: buyer.email,
			Items:   items,
			Address: order.Address{
				Name:    buyer.name,
				Email:   buyer.email,
				Phone:   "9876543210",
				Line1:   "12 MG Road",
				City:    "Satna",
				State:   "Madhya Pradesh",
				Pincode: buyer.pincode,
			},
			CouponCode:        quote.AppliedCoupon,
			Pricing:           quote,
			Status:            order.StatusConfirmed,
			CreatedAt:         placedAt,
			UpdatedAt:         placedAt,
			EstimatedDelivery: order.EstimatedDelivery(placedAt),
		}

		saved, err := orders.Create(ctx, o)
		if err != nil {
			log.Fatalf("create demo order: %v", err)
		}
		created++
		note := ""
		if saved.CouponCode != "" {
			note = " coupon " + saved.CouponCode
		}
		log.Printf("order %s for %s total ₹%d%s", saved.ID, saved.Contact, saved.Pricing.Total, note)
	}

	emails := make([]string, 0, len(buyers))
	for _, b := range buyers {
		emails = append(emails, b.email)
	}
	log.Printf("seeded %d demo orders for %s", created, strings.Join(emails, ", "))
}
