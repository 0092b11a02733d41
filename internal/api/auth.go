package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type adminKey struct{}

// AdminFromContext субъект токена администратора
func AdminFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(adminKey{}).(string)
	return subject
}

// IssueAdminToken выпускает HS256 токен для админских ручек
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("admin secret is not configured")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseAdminToken(secret, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// AdminAuth пропускает только запросы с валидным Bearer токеном
func AdminAuth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusServiceUnavailable, "admin API is disabled")
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := parseAdminToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Warn("Rejected admin token", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), adminKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminLogin вход оператора по паролю, пароль сверяется с bcrypt-хешем из конфига
type AdminLogin struct {
	Username     string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

// HashPassword bcrypt-хеш для ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

var errInvalidCredentials = errors.New("invalid credentials")

func (l AdminLogin) login(username, password string) (string, error) {
	if l.PasswordHash == "" || l.Secret == "" {
		return "", errors.New("password login is not configured")
	}
	if username != l.Username {
		return "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}
	return IssueAdminToken(l.Secret, username, l.TokenTTL)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.admin.login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			h.logger.Warn("Failed admin login", zap.String("username", req.Username))
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.logger.Info("Admin logged in", zap.String("username", req.Username))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: time.Now().Add(h.admin.TokenTTL)})
}
