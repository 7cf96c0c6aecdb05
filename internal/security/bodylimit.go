package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/rasoiyaa/backend-store/internal/common"
)

// BodyLimit caps request payload size. Storefront writes are small JSON
// bodies, so anything past the limit is a mistake or abuse.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized requests with 413. Within the limit the body
// is buffered and replayed so downstream decoders see an ordinary reader.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Fast path: trust a declared Content-Length over the limit.
		if r.ContentLength > b.Max {
			tooLarge(w)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
			return
		}
		if int64(len(buf)) > b.Max {
			tooLarge(w)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
}
