package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts checkout outcomes.
	OrdersPlacedTotal *prometheus.CounterVec
	// OrderValue records the total of each placed order in rupees.
	OrderValue prometheus.Histogram
	// CouponAppliedTotal counts coupon evaluations by code and result.
	CouponAppliedTotal *prometheus.CounterVec
	// OTPRequestsTotal counts login code requests by result.
	OTPRequestsTotal *prometheus.CounterVec
	// EmailTasksTotal counts queued email tasks by type.
	EmailTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront Prometheus
// collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of checkout attempts by result.",
		}, []string{"result"})
		OrderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_rupees",
			Help:      "Distribution of placed order totals in rupees.",
			Buckets:   []float64{100, 200, 300, 500, 750, 1000, 2000, 5000},
		})
		CouponAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applied_total",
			Help:      "Count of coupon applications by code and result.",
		}, []string{"code", "result"})
		OTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_requests_total",
			Help:      "Count of login code requests by result.",
		}, []string{"result"})
		EmailTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_tasks_total",
			Help:      "Count of queued email tasks by type.",
		}, []string{"type"})

		mustRegisterCollector(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderValue, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderValue = v
			}
		})
		mustRegisterCollector(reg, CouponAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, OTPRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OTPRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, EmailTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailTasksTotal = v
			}
		})
	})
}

// CountOrderPlaced records a checkout outcome. Safe to call before the
// collectors are registered.
func CountOrderPlaced(result string, total float64) {
	if OrdersPlacedTotal != nil {
		OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
	if OrderValue != nil && result == "ok" {
		OrderValue.Observe(total)
	}
}

// CountCouponApplied records a coupon evaluation outcome.
func CountCouponApplied(code, result string) {
	if CouponAppliedTotal != nil {
		CouponAppliedTotal.WithLabelValues(code, result).Inc()
	}
}

// CountOTPRequest records a login code request outcome.
func CountOTPRequest(result string) {
	if OTPRequestsTotal != nil {
		OTPRequestsTotal.WithLabelValues(result).Inc()
	}
}

// CountEmailTask records a queued email task.
func CountEmailTask(taskType string) {
	if EmailTasksTotal != nil {
		EmailTasksTotal.WithLabelValues(taskType).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
