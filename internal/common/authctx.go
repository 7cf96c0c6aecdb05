package common

import "context"

type ctxKey string

const (
	contactKey ctxKey = "auth/contact"
	adminKey   ctxKey = "auth/is-admin"
)

// WithContact stores the authenticated buyer contact on the provided context.
func WithContact(ctx context.Context, contact string) context.Context {
	return context.WithValue(ctx, contactKey, contact)
}

// Contact extracts the authenticated buyer contact from the context if present.
func Contact(ctx context.Context) (string, bool) {
	v := ctx.Value(contactKey)
	if v == nil {
		return "", false
	}
	contact, ok := v.(string)
	return contact, ok
}

// WithAdmin marks the context as belonging to an admin session.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdmin reports whether the context carries an admin session.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey).(bool)
	return v
}
