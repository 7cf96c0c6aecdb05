package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	redis "github.com/redis/go-redis/v9"

	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/ratelimit"
)

// OTPMailer queues one-time code deliveries. *notify.Enqueuer satisfies it.
type OTPMailer interface {
	EnqueueOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

const (
	defaultOTPTTL        = 5 * time.Minute
	defaultAccessTTL     = 24 * time.Hour
	defaultRequestLimit  = 3
	defaultRequestWindow = 10 * time.Minute
	otpDigits            = 6
)

// Session is returned after a successful OTP verification.
type Session struct {
	Contact     string    `json:"contact"`
	Admin       bool      `json:"admin"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service implements passwordless email login: a one-time code is hashed
// into Redis, mailed to the buyer, and exchanged for an HS256 JWT whose
// subject is the contact email.
type Service struct {
	R             *redis.Client
	Limiter       ratelimit.Limiter
	Mail          OTPMailer
	Secret        []byte
	Issuer        string
	OTPTTL        time.Duration
	AccessTTL     time.Duration
	RequestLimit  int
	RequestWindow time.Duration
	IsAdmin       func(contact string) bool
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) otpTTL() time.Duration {
	if s.OTPTTL > 0 {
		return s.OTPTTL
	}
	return defaultOTPTTL
}

func (s *Service) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return defaultAccessTTL
}

func otpKey(contact string) string { return "otp:" + contact }

func denyKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:denylist:" + hex.EncodeToString(sum[:])
}

// NormalizeContact lowercases and trims an email contact.
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// RequestOTP generates a login code for the contact, stores only its hash,
// and queues the email. Repeated requests replace the previous code.
func (s *Service) RequestOTP(ctx context.Context, contact string) error {
	if s == nil || s.R == nil {
		return errors.New("auth service not configured")
	}
	contact = NormalizeContact(contact)
	if contact == "" || !strings.Contains(contact, "@") {
		return common.NewAppError("VALIDATION_ERROR", "a valid email is required", http.StatusBadRequest, nil)
	}

	limit := s.RequestLimit
	if limit <= 0 {
		limit = defaultRequestLimit
	}
	window := s.RequestWindow
	if window <= 0 {
		window = defaultRequestWindow
	}
	allowed, _, reset, err := s.Limiter.Allow(ctx, "otp:"+contact, window, limit)
	if err != nil {
		return err
	}
	if !allowed {
		return common.NewAppError("RATE_LIMITED",
			fmt.Sprintf("too many codes requested, retry after %s", reset.Format(time.RFC3339)),
			http.StatusTooManyRequests, nil)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := argon2id.CreateHash(code, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	ttl := s.otpTTL()
	if err := s.R.Set(ctx, otpKey(contact), hash, ttl).Err(); err != nil {
		return err
	}
	if s.Mail == nil {
		return nil
	}
	return s.Mail.EnqueueOTP(ctx, contact, code, ttl)
}

// VerifyOTP exchanges a valid code for a signed session token. The code is
// consumed on success so it cannot be replayed.
func (s *Service) VerifyOTP(ctx context.Context, contact, code string) (Session, error) {
	if s == nil || s.R == nil {
		return Session{}, errors.New("auth service not configured")
	}
	contact = NormalizeContact(contact)
	code = strings.TrimSpace(code)
	if contact == "" || code == "" {
		return Session{}, invalidCode(nil)
	}

	hash, err := s.R.Get(ctx, otpKey(contact)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, invalidCode(nil)
		}
		return Session{}, err
	}
	match, err := argon2id.ComparePasswordAndHash(code, hash)
	if err != nil || !match {
		return Session{}, invalidCode(err)
	}
	if err := s.R.Del(ctx, otpKey(contact)).Err(); err != nil {
		return Session{}, err
	}

	admin := s.IsAdmin != nil && s.IsAdmin(contact)
	token, expiresAt, err := s.signToken(contact, admin)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Contact: contact, Admin: admin, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// ParseAccessToken validates a token and returns the contact and admin flag.
// Tokens on the logout denylist are rejected even when otherwise valid.
func (s *Service) ParseAccessToken(ctx context.Context, token string) (string, bool, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", false, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithIssuer(s.issuer()),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return "", false, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.R != nil {
		if n, err := s.R.Exists(ctx, denyKey(trimmed)).Result(); err == nil && n > 0 {
			return "", false, common.NewAppError("UNAUTHORIZED", "token revoked", http.StatusUnauthorized, nil)
		}
	}
	admin := false
	if raw, ok := parsed.Get("admin"); ok {
		admin, _ = raw.(bool)
	}
	return parsed.Subject(), admin, nil
}

// Logout denylists the token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" || s == nil || s.R == nil {
		return nil
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		// Invalid or expired tokens need no denylist entry.
		return nil
	}
	remaining := parsed.Expiration().Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.R.Set(ctx, denyKey(trimmed), "1", remaining).Err()
}

func (s *Service) issuer() string {
	if s.Issuer != "" {
		return s.Issuer
	}
	return "rasoiyaa-store"
}

func (s *Service) signToken(contact string, admin bool) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL())
	token, err := jwt.NewBuilder().
		Subject(contact).
		Issuer(s.issuer()).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("admin", admin).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func invalidCode(err error) *common.AppError {
	return common.NewAppError("INVALID_CODE", "invalid or expired code", http.StatusUnauthorized, err)
}
