package models

import "time"

// User - staff-аккаунт (admin, advisor, reviewer). Коллекция "Account".
type User struct {
	BaseModel
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"not null" json:"-"`
	DisplayName   string     `gorm:"not null" json:"displayName"`
	Role          UserRole   `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	PushEnabled   bool       `gorm:"default:true" json:"pushEnabled"`
	ResetToken    string     `json:"-"`
	ResetTokenExp *time.Time `json:"-"`

	// Relations
	Students      []Student      `gorm:"foreignKey:AdvisorID" json:"-"`
	RefreshTokens []RefreshToken `gorm:"-" json:"-"`
}

// RefreshToken - refresh-токен идентичности (staff или студент).
type RefreshToken struct {
	BaseModel
	IdentityID  string        `gorm:"type:uuid;not null;index" json:"-"`
	IdentityTag CollectionTag `gorm:"type:varchar(10);not null" json:"-"`
	Token       string        `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt   time.Time     `gorm:"not null" json:"-"`
	RevokedAt   *time.Time    `json:"-"`
}

// DeviceToken - push-токен устройства, привязанный к идентичности.
// Удаляется, когда внешний push-канал сообщает о постоянной невалидности.
type DeviceToken struct {
	BaseModel
	IdentityID  string        `gorm:"type:uuid;not null;index" json:"identityId"`
	IdentityTag CollectionTag `gorm:"type:varchar(10);not null" json:"identityTag"`
	Token       string        `gorm:"not null;uniqueIndex" json:"token"`
	Platform    string        `gorm:"type:varchar(20)" json:"platform"`
}
