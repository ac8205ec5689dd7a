package models

import "time"

// Student - аккаунт студента. Отдельная коллекция "Student";
// id никогда не пересекаются с коллекцией аккаунтов.
type Student struct {
	BaseModel
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"not null" json:"-"`
	DisplayName   string     `gorm:"not null" json:"displayName"`
	AdvisorID     *string    `gorm:"type:uuid;index" json:"advisorId"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	PushEnabled   bool       `gorm:"default:true" json:"pushEnabled"`
	ResetToken    string     `json:"-"`
	ResetTokenExp *time.Time `json:"-"`

	// Relations
	Advisor *User `gorm:"foreignKey:AdvisorID" json:"-"`
}
