package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestTokenRoundTrip(t *testing.T) {
	h := NewHandler(nil, []byte("test-secret"))

	token, err := generateJWT("user_A", h.JWTSecret)
	assert.NoError(t, err)

	userID, err := h.validateAndGetUserID(token)
	assert.NoError(t, err)
	assert.Equal(t, "user_A", userID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := generateJWT("user_A", []byte("secret-one"))
	assert.NoError(t, err)

	h := NewHandler(nil, []byte("secret-two"))
	_, err = h.validateAndGetUserID(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	h := NewHandler(nil, []byte("test-secret"))
	_, err := h.validateAndGetUserID("not-a-token")
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	claims := jwt.MapClaims{
		"user_id": "user_A",
		"exp":     time.Now().Add(-time.Hour).Unix(),
		"iss":     "talklink-service",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	assert.NoError(t, err)

	h := NewHandler(nil, secret)
	_, err = h.validateAndGetUserID(token)
	assert.Error(t, err)
}

func TestGetTokenIssuesUsableToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, []byte("test-secret"))

	router := gin.New()
	router.POST("/token", h.GetToken)

	req := httptest.NewRequest(http.MethodPost, "/token?user_id=user_A", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user_A", body["user_id"])

	userID, err := h.validateAndGetUserID(body["token"])
	assert.NoError(t, err)
	assert.Equal(t, "user_A", userID)
}

func TestGetTokenGeneratesUserIDWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, []byte("test-secret"))

	router := gin.New()
	router.POST("/token", h.GetToken)

	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["user_id"])
	assert.NotEmpty(t, body["token"])
}
