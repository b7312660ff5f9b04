package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"emergencyDashboard/internal/render"
	"emergencyDashboard/pkg/e"
	"emergencyDashboard/pkg/validator"
)

// maxBodyBytes caps a decoded request body.
const maxBodyBytes = 1 << 20

type bodyKey struct{}

// BindJSON decodes the request body into a fresh T, validates it and stores it
// in the request context for Body to pick up. Failures are answered with 400.
func BindJSON[T any]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := DecodeJSON[T](w, r)
			if err != nil {
				render.Error(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, v)))
		})
	}
}

// Body returns the value bound by BindJSON.
func Body[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(bodyKey{}).(T)
	return v, ok
}

// DecodeJSON reads one JSON value and runs struct validation on it.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		if errors.Is(err, e.ErrInvalidInput) {
			return v, err
		}
		return v, e.Invalid("malformed JSON body: %v", err)
	}
	if err := validator.ValidateStruct(v); err != nil {
		return v, err
	}
	return v, nil
}
