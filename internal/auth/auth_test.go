package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/stock-ledger/internal/auth"
)

func TestNewStaticVerifier(t *testing.T) {
	userA := uuid.Must(uuid.NewV4())
	userB := uuid.Must(uuid.NewV4())

	t.Run("parses_multiple_entries", func(t *testing.T) {
		v, err := auth.NewStaticVerifier("alpha=" + userA.String() + ":admin,beta=" + userB.String() + ":seller")
		require.NoError(t, err)

		identity, err := v.Verify(context.Background(), "alpha")
		require.NoError(t, err)
		assert.Equal(t, userA, identity.ID)
		assert.Equal(t, "admin", identity.Role)

		identity, err = v.Verify(context.Background(), "beta")
		require.NoError(t, err)
		assert.Equal(t, userB, identity.ID)
		assert.Equal(t, "seller", identity.Role)
	})

	t.Run("empty_spec", func(t *testing.T) {
		v, err := auth.NewStaticVerifier("")
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), "anything")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("malformed_entries", func(t *testing.T) {
		specs := []string{
			"no-separator",
			"token=missing-role",
			"token=not-a-uuid:admin",
		}
		for _, spec := range specs {
			_, err := auth.NewStaticVerifier(spec)
			assert.Error(t, err, "spec %q must be rejected", spec)
		}
	})

	t.Run("unknown_token", func(t *testing.T) {
		v, err := auth.NewStaticVerifier("alpha=" + userA.String() + ":admin")
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), "bravo")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	verifier, err := auth.NewStaticVerifier("secret=" + userID.String() + ":admin")
	require.NoError(t, err)

	var seen *auth.Identity
	handler := auth.Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		seen = &identity
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid_token", header: "Bearer secret", wantStatus: http.StatusOK},
		{name: "missing_header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Basic secret", wantStatus: http.StatusUnauthorized},
		{name: "empty_token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "unknown_token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, userID, seen.ID)
			} else {
				assert.Nil(t, seen)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

				var body struct {
					Error string `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}
