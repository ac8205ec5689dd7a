package models

import "time"

// ChatRequest - запрос студента на переписку с ревьюером.
// Advisor привязывается из профиля студента при создании и только он
// может перевести запрос из pending в терминальный статус.
type ChatRequest struct {
	BaseModel
	StudentID       string            `gorm:"type:uuid;not null;index:idx_chat_requests_pair" json:"studentId"`
	ReviewerID      string            `gorm:"type:uuid;not null;index:idx_chat_requests_pair" json:"reviewerId"`
	AdvisorID       string            `gorm:"type:uuid;not null;index" json:"advisorId"`
	Status          ChatRequestStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Reason          string            `gorm:"type:text" json:"reason"`
	RejectionReason string            `gorm:"type:text" json:"rejectionReason,omitempty"`
	RespondedAt     *time.Time        `json:"respondedAt,omitempty"`

	// Relations
	Student  *Student `gorm:"foreignKey:StudentID" json:"-"`
	Reviewer *User    `gorm:"foreignKey:ReviewerID" json:"-"`
	Advisor  *User    `gorm:"foreignKey:AdvisorID" json:"-"`
}

// IsResolved сообщает, находится ли запрос в терминальном статусе.
func (r *ChatRequest) IsResolved() bool {
	return r.Status == ChatRequestApproved || r.Status == ChatRequestRejected
}
