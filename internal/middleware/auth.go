package middleware

import (
	"net/http"
	"strings"

	"mentorhub_backend/internal/auth"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware - middleware проверки JWT. Тег коллекции из claims
// позволяет зарезолвить идентичность одним lookup'ом; деактивированные
// учетные записи отсекаются здесь же, не дожидаясь истечения токена.
func AuthMiddleware(identitySvc services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or invalid"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		db, ok := dbFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database is not available"})
			return
		}

		identity, active, err := identitySvc.ResolveTagged(db, claims.IdentityID, claims.IdentityTag)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if !active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
			return
		}

		ctx := logger.WithIdentityID(c.Request.Context(), identity.ID)
		c.Request = c.Request.WithContext(ctx)

		// Сохраняем идентичность в контекст
		c.Set("identity", identity)
		c.Set("role", identity.Role)
		c.Next()
	}
}

// RoleMiddleware - middleware ограничения по одной роли
func RoleMiddleware(requiredRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := roleFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: no role"})
			return
		}

		if role != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient permissions"})
			return
		}

		c.Next()
	}
}

// RequireRoles - middleware для проверки нескольких возможных ролей
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role, ok := roleFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: no role"})
			return
		}

		if !roleSet[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient role"})
			return
		}

		c.Next()
	}
}

// GetIdentity извлекает резолвленную идентичность из контекста
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	val, exists := c.Get("identity")
	if !exists {
		return nil, false
	}

	identity, ok := val.(*models.Identity)
	if !ok || identity == nil {
		return nil, false
	}

	return identity, true
}

func roleFromGin(c *gin.Context) (models.UserRole, bool) {
	roleVal, exists := c.Get("role")
	if !exists {
		return "", false
	}

	role, ok := roleVal.(models.UserRole)
	if !ok {
		// Попытка преобразовать из string, если роль сохранена как строка
		roleStr, isString := roleVal.(string)
		if !isString {
			return "", false
		}
		role = models.UserRole(roleStr)
	}

	return role, true
}

func dbFromGin(c *gin.Context) (*gorm.DB, bool) {
	val, exists := c.Get(string(contextkeys.DBContextKey))
	if !exists {
		return nil, false
	}

	db, ok := val.(*gorm.DB)
	return db, ok
}
