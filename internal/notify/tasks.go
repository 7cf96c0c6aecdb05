package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/rasoiyaa/backend-store/internal/obs"
	"github.com/rasoiyaa/backend-store/internal/order"
)

// Task type names for the email queue.
const (
	TaskEmailOTP   = "email:otp"
	TaskEmailOrder = "email:order_confirmation"
)

// OTPEmailPayload carries one login code delivery.
type OTPEmailPayload struct {
	To   string        `json:"to"`
	Code string        `json:"code"`
	TTL  time.Duration `json:"ttl"`
}

// OrderEmailPayload carries one confirmation delivery. The full order is
// embedded so the worker renders from the persisted numbers without a
// database round trip.
type OrderEmailPayload struct {
	Order order.Order `json:"order"`
}

// NewOTPEmailTask builds the asynq task for a login code email.
func NewOTPEmailTask(to, code string, ttl time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(OTPEmailPayload{To: to, Code: code, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailOTP, payload, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

// NewOrderEmailTask builds the asynq task for an order confirmation email.
func NewOrderEmailTask(o order.Order) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderEmailPayload{Order: o})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailOrder, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer wraps the asynq client. A nil client turns enqueueing into a
// no-op so checkout keeps working when the queue is down or unconfigured.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// EnqueueOTP schedules an OTP email.
func (e *Enqueuer) EnqueueOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if e == nil || e.Client == nil {
		return nil
	}
	task, err := NewOTPEmailTask(to, code, ttl)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue otp email: %w", err)
	}
	obs.CountEmailTask(TaskEmailOTP)
	return nil
}

// EnqueueOrderConfirmation schedules an order confirmation email. Failures
// are logged, not returned: the order is already placed and the buyer must
// not see an error for a mail hiccup.
func (e *Enqueuer) EnqueueOrderConfirmation(ctx context.Context, o order.Order) {
	if e == nil || e.Client == nil {
		return
	}
	task, err := NewOrderEmailTask(o)
	if err == nil {
		_, err = e.Client.EnqueueContext(ctx, task)
	}
	if err != nil {
		e.Logger.Error().Err(err).Str("orderId", o.ID).Msg("enqueue order confirmation")
		return
	}
	obs.CountEmailTask(TaskEmailOrder)
}

// Worker consumes email tasks.
type Worker struct {
	Mail   EmailSender
	Logger zerolog.Logger
}

// Register attaches the worker's handlers to an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskEmailOTP, w.HandleOTP)
	mux.HandleFunc(TaskEmailOrder, w.HandleOrderConfirmation)
}

// HandleOTP delivers a login code email.
func (w *Worker) HandleOTP(ctx context.Context, t *asynq.Task) error {
	if w.Mail == nil {
		return errors.New("email sender not configured")
	}
	var p OTPEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode otp payload: %w", asynq.SkipRetry)
	}
	if err := w.Mail.Send(p.To, OTPSubject(), OTPBody(p.Code, p.TTL)); err != nil {
		return fmt.Errorf("send otp email to %s: %w", p.To, err)
	}
	w.Logger.Info().Str("to", p.To).Msg("otp email sent")
	return nil
}

// HandleOrderConfirmation delivers an order confirmation email.
func (w *Worker) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	if w.Mail == nil {
		return errors.New("email sender not configured")
	}
	var p OrderEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode order payload: %w", asynq.SkipRetry)
	}
	to := p.Order.Address.Email
	if to == "" {
		to = p.Order.Contact
	}
	if to == "" {
		return fmt.Errorf("order %s has no recipient: %w", p.Order.ID, asynq.SkipRetry)
	}
	if err := w.Mail.Send(to, OrderConfirmationSubject(p.Order.ID), OrderConfirmationBody(p.Order)); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", p.Order.ID, err)
	}
	w.Logger.Info().Str("to", to).Str("orderId", p.Order.ID).Msg("order confirmation sent")
	return nil
}
