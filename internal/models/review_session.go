package models

import "time"

// ReviewSession - запланированная ревью-сессия между студентом и
// ревьюером. Второе пространство тредов для сообщений.
type ReviewSession struct {
	BaseModel
	StudentID   string              `gorm:"type:uuid;not null;index" json:"studentId"`
	ReviewerID  string              `gorm:"type:uuid;not null;index" json:"reviewerId"`
	AdvisorID   string              `gorm:"type:uuid;not null;index" json:"advisorId"`
	ScheduledAt time.Time           `gorm:"not null" json:"scheduledAt"`
	Topic       string              `gorm:"type:text" json:"topic"`
	Status      ReviewSessionStatus `gorm:"type:varchar(20);default:'scheduled';index" json:"status"`

	// Relations
	Student  *Student `gorm:"foreignKey:StudentID" json:"-"`
	Reviewer *User    `gorm:"foreignKey:ReviewerID" json:"-"`
}

// IsParty проверяет, имеет ли идентичность отношение к сессии
// (студент, ревьюер или назначивший advisor).
func (s *ReviewSession) IsParty(identityID string) bool {
	return s.StudentID == identityID || s.ReviewerID == identityID || s.AdvisorID == identityID
}
