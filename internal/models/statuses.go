package models

type UserRole string
type CollectionTag string
type ChatRequestStatus string
type MessageType string
type NotificationPriority string
type DeliveryStatus string
type RecipientGroup string
type ReviewSessionStatus string

const (
	RoleAdmin    UserRole = "admin"
	RoleAdvisor  UserRole = "advisor"
	RoleReviewer UserRole = "reviewer"
	RoleStudent  UserRole = "student"

	// Тег коллекции, из которой пришла идентичность
	TagAccount CollectionTag = "Account"
	TagStudent CollectionTag = "Student"

	ChatRequestPending  ChatRequestStatus = "pending"
	ChatRequestApproved ChatRequestStatus = "approved"
	ChatRequestRejected ChatRequestStatus = "rejected"

	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
	MessageTypeFile   MessageType = "file"

	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"

	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"

	GroupAll       RecipientGroup = "all"
	GroupStudents  RecipientGroup = "students"
	GroupAdvisors  RecipientGroup = "advisors"
	GroupReviewers RecipientGroup = "reviewers"

	ReviewScheduled ReviewSessionStatus = "scheduled"
	ReviewCompleted ReviewSessionStatus = "completed"
	ReviewCancelled ReviewSessionStatus = "cancelled"
)

// Типы уведомлений (поле Notification.Type)
const (
	NotificationTypeChatMessage         = "chat_message"
	NotificationTypeChatRequestCreated  = "chat_request_created"
	NotificationTypeChatRequestApproved = "chat_request_approved"
	NotificationTypeChatRequestRejected = "chat_request_rejected"
	NotificationTypeReviewScheduled     = "review_scheduled"
	NotificationTypeReviewCancelled     = "review_cancelled"
	NotificationTypeSystem              = "system"
	NotificationTypeAnnouncement        = "announcement"
)

// MaxMessageLength - лимит длины одного сообщения чата.
const MaxMessageLength = 5000

// PreviewLength - длина превью последнего сообщения в диалоге.
const PreviewLength = 100
