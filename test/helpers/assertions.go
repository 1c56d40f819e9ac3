package helpers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DecodeResponse decodes the standard envelope; data is decoded into dest
// when dest is non-nil.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) common.Response {
	t.Helper()

	var raw struct {
		common.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if dest != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return raw.Response
}

// AssertErrorResponse asserts the status code and error message of a failed request
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	assert.Equal(t, status, w.Code)
	resp := DecodeResponse(t, w, nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, status, resp.Error.Code)
	assert.Equal(t, message, resp.Error.Message)
}

// AssertValidJWT asserts that a string is a valid JWT token format
func AssertValidJWT(t *testing.T, token string) {
	assert.NotEmpty(t, token)
	// JWT tokens should have 3 parts separated by dots
	assert.Contains(t, token, ".")
}

// SignToken issues an HS256 token accepted by middleware.AuthMiddleware
func SignToken(t *testing.T, secret, issuer, userID, role string) string {
	t.Helper()

	claims := middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	AssertValidJWT(t, token)
	return token
}
