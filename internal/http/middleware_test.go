package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/physio-agenda/internal/application"
)

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			headerToken    string
			lookupError    error
			expectedStatus int
			expectedCode   string
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_MISSING_TOKEN",
			},
			{
				name:           "non bearer header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_MISSING_TOKEN",
			},
			{
				name:           "unknown key",
				headerToken:    "Bearer wrong",
				lookupError:    application.ErrUnauthorized,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_INVALID_TOKEN",
			},
			{
				name:           "validator failure",
				headerToken:    "Bearer transient",
				lookupError:    errors.New("boom"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				handler := RequireSession(fakeSessionValidator{err: tc.lookupError}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("status = %d, want %d", recorder.Code, tc.expectedStatus)
				}
				var body errorResponse
				if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.Message == "" {
					t.Fatal("expected a localized message")
				}
				if body.ErrorCode != tc.expectedCode {
					t.Fatalf("error_code = %q, want %q", body.ErrorCode, tc.expectedCode)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: application.APIKeyPrincipalID, Token: "valid-token"}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "bearer valid-token")
		recorder := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(fakeSessionValidator{principal: principal}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d", recorder.Code)
		}
		if captured != principal {
			t.Fatalf("captured principal = %+v, want %+v", captured, principal)
		}
	})
}

func TestPublicPaths(t *testing.T) {
	t.Parallel()

	protect := RequireSession(fakeSessionValidator{err: application.ErrUnauthorized}, nil)
	handler := PublicPaths(protect, "/healthz")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	public := httptest.NewRecorder()
	handler.ServeHTTP(public, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if public.Code != http.StatusNoContent {
		t.Fatalf("public path status = %d", public.Code)
	}

	private := httptest.NewRecorder()
	handler.ServeHTTP(private, httptest.NewRequest(http.MethodGet, "/agenda/week", nil))
	if private.Code != http.StatusUnauthorized {
		t.Fatalf("protected path status = %d", private.Code)
	}
}

func TestRequestLoggerAttachesLogger(t *testing.T) {
	t.Parallel()

	var found bool
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		found = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if !found {
		t.Fatal("expected logger in request context")
	}
	if recorder.Code != http.StatusTeapot {
		t.Fatalf("status = %d", recorder.Code)
	}
}

type fakeSessionValidator struct {
	principal application.Principal
	err       error
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}
