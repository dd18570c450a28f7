package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"cryptoexchange/internal/auth"
	"cryptoexchange/internal/models"

	"go.uber.org/zap"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
	tokenKey  contextKey = "token"
)

const tokenCookie = "token"

type UserLookup interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type SessionChecker interface {
	IsActive(ctx context.Context, userID, token string) (bool, error)
}

type AuthConfig struct {
	Secret   string
	Users    UserLookup
	Sessions SessionChecker
	Logger   *zap.Logger
	// DemoUserEmail, when set, authenticates token-less requests as that user.
	DemoUserEmail string
	// AllowQueryToken also reads ?token=, for clients that cannot set headers.
	AllowQueryToken bool
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}

func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

func WithUser(ctx context.Context, user models.User, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, user.ID)
	ctx = context.WithValue(ctx, roleKey, user.Role)
	return context.WithValue(ctx, tokenKey, token)
}

func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenFromRequest(r, cfg.AllowQueryToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			if token == "" {
				if cfg.DemoUserEmail == "" {
					writeError(w, http.StatusUnauthorized, "unauthorized", "access token required")
					return
				}
				user, err := cfg.Users.GetByEmail(r.Context(), cfg.DemoUserEmail)
				if err != nil || !user.IsActive {
					logger.Warn("demo user unavailable", zap.String("email", cfg.DemoUserEmail), zap.Error(err))
					writeError(w, http.StatusUnauthorized, "unauthorized", "access token required")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, "")))
				return
			}

			claims, err := auth.ParseToken(cfg.Secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			user, err := cfg.Users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeError(w, http.StatusUnauthorized, "unauthorized", "user not found or inactive")
					return
				}
				logger.Error("load user for token", zap.String("user_id", claims.UserID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
				return
			}
			if !user.IsActive {
				writeError(w, http.StatusUnauthorized, "unauthorized", "user not found or inactive")
				return
			}
			active, err := cfg.Sessions.IsActive(r.Context(), user.ID, token)
			if err != nil {
				logger.Error("check session", zap.String("user_id", user.ID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal_error", "authentication failed")
				return
			}
			if !active {
				writeError(w, http.StatusUnauthorized, "unauthorized", "session expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

var errInvalidHeader = errors.New("invalid authorization header")

func tokenFromRequest(r *http.Request, allowQuery bool) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errInvalidHeader
		}
		return parts[1], nil
	}
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if allowQuery {
		return r.URL.Query().Get("token"), nil
	}
	return "", nil
}
