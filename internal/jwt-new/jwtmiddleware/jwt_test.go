package jwtmiddleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/tm-watch/internal/domain/models"
	security "github.com/linemk/tm-watch/internal/jwt-new"
	"github.com/linemk/tm-watch/internal/jwt-new/jwtmiddleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecret"

// echoUserID отвечает идентификатором пользователя из контекста.
func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "userID not found", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strconv.FormatInt(userID, 10)))
	})
}

func serve(t *testing.T, setHeaders func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	handler := jwtmiddleware.NewJWTMiddleware(testSecret)(echoUserID())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	setHeaders(req)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestJWTMiddleware_MissingAuthorization(t *testing.T) {
	rr := serve(t, func(r *http.Request) {})

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status when no token provided")
	assert.True(t, strings.Contains(rr.Body.String(), "missing token"))
}

func TestJWTMiddleware_InvalidAuthorizationFormat(t *testing.T) {
	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "InvalidFormat")
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status for invalid token format")
	assert.True(t, strings.Contains(rr.Body.String(), "invalid token format"))
}

func TestJWTMiddleware_InvalidToken(t *testing.T) {
	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer invalid.token.value")
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected unauthorized status for invalid token")
	assert.True(t, strings.Contains(rr.Body.String(), "invalid token"))
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	tokenStr, err := security.NewToken(&models.User{ID: 7, Email: "a@example.com"}, "other-secret", time.Hour)
	require.NoError(t, err)

	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenStr)
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	tokenStr, err := security.NewToken(&models.User{ID: 7, Email: "a@example.com"}, testSecret, -time.Minute)
	require.NoError(t, err)

	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenStr)
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr, err := security.NewToken(&models.User{ID: 123, Email: "a@example.com"}, testSecret, time.Hour)
	require.NoError(t, err)

	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenStr)
	})

	assert.Equal(t, http.StatusOK, rr.Code, "Expected OK status for valid token")
	assert.Equal(t, "123", rr.Body.String())
}

func TestJWTMiddleware_AccessTokenHeader(t *testing.T) {
	tokenStr, err := security.NewToken(&models.User{ID: 42, Email: "a@example.com"}, testSecret, time.Hour)
	require.NoError(t, err)

	rr := serve(t, func(r *http.Request) {
		r.Header.Set("x-access-token", tokenStr)
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

func TestJWTMiddleware_NonNumericSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin"})
	tokenStr, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rr := serve(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tokenStr)
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewToken_EmptySecret(t *testing.T) {
	_, err := security.NewToken(&models.User{ID: 1}, "", time.Hour)
	assert.ErrorIs(t, err, security.ErrEmptySecret)
}

func TestFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), jwtmiddleware.UserIDKey, int64(456))
	userID, ok := jwtmiddleware.FromContext(ctx)
	assert.True(t, ok, "Expected to retrieve userID from context")
	assert.Equal(t, int64(456), userID, "Expected userID to match")
}
