package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"geminichat/internal/common"
	"geminichat/internal/config"
	"geminichat/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator verifies a username/password pair
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type AuthHandlers struct {
	key           []byte
	ttl           time.Duration
	authenticator Authenticator
	log           *logrus.Logger
}

func NewAuthHandlers(cfg *config.Config, authenticator Authenticator, log *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		key:           cfg.JwtKey,
		ttl:           cfg.TokenTTL,
		authenticator: authenticator,
		log:           log,
	}
}

// GenerateJWT signs an HS256 token whose subject is the user id
func (h *AuthHandlers) GenerateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.key)
}

// ParseJWT validates a token and returns the user id it was issued for
func (h *AuthHandlers) ParseJWT(tokenStr string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return h.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", common.ErrInvalidToken)
	}
	return userID, nil
}

// TokenHandler exchanges JSON credentials for a bearer token
func (h *AuthHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid request format"})
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to authenticate"
		if errors.Is(err, common.ErrInvalidCredentials) || errors.Is(err, common.ErrValidation) {
			status = http.StatusUnauthorized
			message = "Invalid username or password"
		} else {
			h.log.WithError(err).Error("Token authentication failed")
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": message})
		return
	}

	tokenString, err := h.GenerateJWT(user)
	if err != nil {
		h.log.WithError(err).Error("Failed to sign token")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to generate token"})
		return
	}

	h.log.WithField("user_id", user.ID).Info("Issued API token")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"token": tokenString})
}
