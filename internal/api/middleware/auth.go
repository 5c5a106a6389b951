package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m04kA/SMC-TutoringService/internal/api/handlers"
	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

const (
	msgMissingToken = "отсутствует токен авторизации"
	msgInvalidToken = "недействительный токен авторизации"
	msgForbidden    = "доступ запрещен"
)

var (
	// ErrInvalidClaims возвращается, если в токене нет корректных sub/role
	ErrInvalidClaims = errors.New("auth: invalid token claims")
)

type callerKey struct{}

// Claims утверждения токена identity-сервиса: sub - ID аккаунта, role - роль
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Caller проверяет claims и собирает из них вызывающего
func (c *Claims) Caller() (domain.Caller, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Caller{}, fmt.Errorf("%w: sub=%q", ErrInvalidClaims, c.Subject)
	}
	role := domain.Role(c.Role)
	if !role.IsValid() {
		return domain.Caller{}, fmt.Errorf("%w: role=%q", ErrInvalidClaims, c.Role)
	}
	return domain.Caller{UserID: userID, Role: role}, nil
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Auth проверяет Bearer JWT (HS256) и кладёт вызывающего в контекст
func Auth(secret []byte, issuer string, logger Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				logger.Warn("%s %s - Missing bearer token", r.Method, r.URL.Path)
				handlers.RespondUnauthorized(w, msgMissingToken)
				return
			}

			claims := &Claims{}
			_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil {
				logger.Warn("%s %s - Invalid token: %v", r.Method, r.URL.Path, err)
				handlers.RespondUnauthorized(w, msgInvalidToken)
				return
			}

			caller, err := claims.Caller()
			if err != nil {
				logger.Warn("%s %s - %v", r.Method, r.URL.Path, err)
				handlers.RespondUnauthorized(w, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// RequireRoles пропускает только перечисленные роли
func RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := GetCaller(r.Context())
			if !ok {
				handlers.RespondUnauthorized(w, msgMissingToken)
				return
			}
			for _, role := range roles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			handlers.RespondForbidden(w, msgForbidden)
		})
	}
}

// WithCaller кладёт вызывающего в контекст
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// GetCaller достаёт вызывающего из контекста
func GetCaller(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Caller)
	return caller, ok
}

// GetUserID достаёт ID аккаунта вызывающего
func GetUserID(ctx context.Context) (int64, bool) {
	caller, ok := GetCaller(ctx)
	return caller.UserID, ok
}

// GetRole достаёт роль вызывающего
func GetRole(ctx context.Context) (domain.Role, bool) {
	caller, ok := GetCaller(ctx)
	return caller.Role, ok
}
