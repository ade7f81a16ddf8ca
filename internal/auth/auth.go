package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/farm-management/internal/permission"
)

// Account is the persisted user record. The role column is the single source
// of the account's capabilities; permissions are derived from it on every
// request and never stored.
type Account struct {
	ID           string          `json:"id" gorm:"column:id;primaryKey"`
	Email        string          `json:"email" gorm:"column:email;uniqueIndex"`
	Name         string          `json:"name" gorm:"column:name"`
	PasswordHash string          `json:"-" gorm:"column:password_hash"`
	Role         permission.Role `json:"role" gorm:"column:role"`
	IsActive     bool            `json:"isActive" gorm:"column:is_active"`
	CreatedAt    time.Time       `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" gorm:"column:updated_at"`
}

func (Account) TableName() string {
	return "users"
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims carries the token identity. ID (jti) doubles as the session id the
// policy layer sees on the request-scoped user.
type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   permission.Role `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey string

const contextUserKey ctxKey = "currentUser"

// UserFromContext returns the request-scoped user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (*permission.User, bool) {
	u, ok := ctx.Value(contextUserKey).(*permission.User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *permission.User) context.Context {
	return context.WithValue(ctx, contextUserKey, u)
}
