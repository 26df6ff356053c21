package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"go.uber.org/zap"
)

const tokenLifetime = 12 * time.Hour

// Claims are the claims carried by an API token.
type Claims struct {
	jwt.StandardClaims
	Shortname string `json:"shortname"`
}

type service struct {
	users  user.Service
	jwtKey []byte
	clock  clock.Clock
	log    *zap.Logger
}

// NewService creates a new auth service signing tokens with secret.
func NewService(users user.Service, secret string, clk clock.Clock, log *zap.Logger) Service {
	return &service{users: users, jwtKey: []byte(secret), clock: clk, log: log}
}

func (s *service) Login(ctx context.Context, userID int64, password string) (string, error) {
	u, err := s.users.CheckPassword(ctx, userID, password)
	if err != nil {
		s.log.Info("login refused", zap.Int64("user", userID))
		return "", err
	}

	now := s.clock.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(tokenLifetime).Unix(),
		},
		Shortname: u.Shortname,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (s *service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, tillerr.User("invalid or expired token")
	}
	return claims, nil
}

func (s *service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := s.ParseToken(raw)
		if err != nil {
			http.Error(w, tillerr.MessageOf(err), http.StatusUnauthorized)
			return
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}
