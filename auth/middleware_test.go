package auth_test

import (
	"codeshare/auth"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/mocks"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMiddleware(t *testing.T) {
	// The handler echoes the identity it received
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(identity.UserID))
	})

	t.Run("should fail when the token is missing", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		authenticator := mocks.NewMockAuthenticator(ctrl)

		rec := httptest.NewRecorder()
		auth.Middleware(authenticator)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/S1/ws", nil))

		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should fail when the token is invalid", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		authenticator := mocks.NewMockAuthenticator(ctrl)
		authenticator.EXPECT().Authenticate("bad").Return(domain.Identity{}, errors.ErrInvalidToken)

		r := httptest.NewRequest(http.MethodGet, "/sessions/S1/ws", nil)
		r.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		auth.Middleware(authenticator)(echo).ServeHTTP(rec, r)

		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should inject the identity from the header", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		authenticator := mocks.NewMockAuthenticator(ctrl)
		authenticator.EXPECT().Authenticate("good").Return(domain.Identity{UserID: "alice"}, nil)

		r := httptest.NewRequest(http.MethodGet, "/sessions/S1/ws", nil)
		r.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		auth.Middleware(authenticator)(echo).ServeHTTP(rec, r)

		req.Equal(http.StatusOK, rec.Code)
		req.Equal("alice", rec.Body.String())
	})

	t.Run("should accept the token from the query", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		authenticator := mocks.NewMockAuthenticator(ctrl)
		authenticator.EXPECT().Authenticate("good").Return(domain.Identity{UserID: "bob"}, nil)

		rec := httptest.NewRecorder()
		auth.Middleware(authenticator)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/S1/ws?token=good", nil))

		req.Equal(http.StatusOK, rec.Code)
		req.Equal("bob", rec.Body.String())
	})
}
