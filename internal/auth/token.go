package auth

import (
	"errors"
	"time"

	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")
)

// Claims - полезная нагрузка access-токена. Тег коллекции кладем в
// токен, чтобы резолвить идентичность без двойного lookup'а на каждый запрос.
type Claims struct {
	IdentityID  string               `json:"identityId"`
	Role        models.UserRole      `json:"role"`
	IdentityTag models.CollectionTag `json:"identityTag"`
	jwt.RegisteredClaims
}

// GenerateToken выпускает подписанный access-токен для идентичности.
func GenerateToken(identity *models.Identity) (string, error) {
	cfg := config.GetConfig()
	now := time.Now()

	claims := &Claims{
		IdentityID:  identity.ID,
		Role:        identity.Role,
		IdentityTag: identity.Tag,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWT.AccessTTL) * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ParseToken проверяет подпись и срок действия токена и возвращает claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.GetConfig()

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.IdentityID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
