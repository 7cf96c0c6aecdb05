package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/ratelimit"
)

type capturingMailer struct {
	to    string
	code  string
	count int
}

func (m *capturingMailer) EnqueueOTP(_ context.Context, to, code string, _ time.Duration) error {
	m.to = to
	m.code = code
	m.count++
	return nil
}

func newTestAuth(t *testing.T) (*Service, *capturingMailer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mailer := &capturingMailer{}
	svc := &Service{
		R:             client,
		Limiter:       ratelimit.Limiter{Client: client, Prefix: "rl:"},
		Mail:          mailer,
		Secret:        []byte("test-secret-test-secret-test-1234"),
		OTPTTL:        5 * time.Minute,
		AccessTTL:     time.Hour,
		RequestLimit:  3,
		RequestWindow: 10 * time.Minute,
		IsAdmin:       func(contact string) bool { return contact == "admin@rasoiyaa.com" },
	}
	return svc, mailer, mr
}

func TestOTPFlow(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()

	if err := svc.RequestOTP(ctx, " Asha@Example.com "); err != nil {
		t.Fatalf("request: %v", err)
	}
	if mailer.to != "asha@example.com" {
		t.Fatalf("expected normalized recipient, got %q", mailer.to)
	}
	if len(mailer.code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", mailer.code)
	}

	session, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.Contact != "asha@example.com" || session.Admin {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.AccessToken == "" {
		t.Fatal("expected a token")
	}

	// The code is consumed on success.
	if _, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code); err == nil {
		t.Fatal("expected replayed code to fail")
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()
	if err := svc.RequestOTP(ctx, "asha@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	wrong := "000000"
	if wrong == mailer.code {
		wrong = "000001"
	}
	if _, err := svc.VerifyOTP(ctx, "asha@example.com", wrong); err == nil {
		t.Fatal("expected wrong code to fail")
	}
	// The stored code survives a failed attempt.
	if _, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code); err != nil {
		t.Fatalf("correct code should still work: %v", err)
	}
}

func TestOTPExpires(t *testing.T) {
	svc, mailer, mr := newTestAuth(t)
	ctx := context.Background()
	if err := svc.RequestOTP(ctx, "asha@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	mr.FastForward(6 * time.Minute)
	if _, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code); err == nil {
		t.Fatal("expected expired code to fail")
	}
}

func TestRequestOTPRejectsBadEmail(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	err := svc.RequestOTP(context.Background(), "not-an-email")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if appErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", appErr.HTTPStatus)
	}
	if mailer.count != 0 {
		t.Fatalf("expected no email, got %d", mailer.count)
	}
}

func TestRequestOTPRateLimited(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := svc.RequestOTP(ctx, "asha@example.com"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	err := svc.RequestOTP(ctx, "asha@example.com")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
	if mailer.count != 3 {
		t.Fatalf("expected 3 emails, got %d", mailer.count)
	}
}

func TestAdminClaim(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()
	if err := svc.RequestOTP(ctx, "admin@rasoiyaa.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	session, err := svc.VerifyOTP(ctx, "admin@rasoiyaa.com", mailer.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !session.Admin {
		t.Fatal("expected admin session")
	}
	contact, admin, err := svc.ParseAccessToken(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if contact != "admin@rasoiyaa.com" || !admin {
		t.Fatalf("unexpected claims: %s admin=%v", contact, admin)
	}
}

func TestLogoutDenylistsToken(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()
	svc.RequestOTP(ctx, "asha@example.com")
	session, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := svc.ParseAccessToken(ctx, session.AccessToken); err != nil {
		t.Fatalf("token should validate before logout: %v", err)
	}
	if err := svc.Logout(ctx, session.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.ParseAccessToken(ctx, session.AccessToken); err == nil {
		t.Fatal("expected revoked token to fail")
	}
}

func TestMiddleware(t *testing.T) {
	svc, mailer, _ := newTestAuth(t)
	ctx := context.Background()
	svc.RequestOTP(ctx, "asha@example.com")
	session, err := svc.VerifyOTP(ctx, "asha@example.com", mailer.code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	mw := Middleware{Service: svc}
	protected := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contact, _ := common.Contact(r.Context())
		w.Write([]byte(contact))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "asha@example.com" {
		t.Fatalf("expected contact echo, got %d %q", rec.Code, rec.Body.String())
	}

	admin := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	admin.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}
