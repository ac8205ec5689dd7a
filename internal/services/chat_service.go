package services

import (
	"strings"
	"unicode/utf8"

	"mentorhub_backend/internal/auth"
	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/models"
	"mentorhub_backend/internal/notifier"
	"mentorhub_backend/internal/presence"
	"mentorhub_backend/internal/repositories"
	"mentorhub_backend/internal/services/dto"
	"mentorhub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ChatService реализует permission-gated переписку: диалоги пар
// идентичностей и тред-сообщения ревью-сессий. Каждая операция сама
// проверяет участие вызывающего, независимо от того, что проверял
// транспорт раньше.
type ChatService interface {
	// CanConverse проверяет, разрешена ли переписка вызывающего с otherID,
	// и возвращает вторую идентичность при успехе.
	CanConverse(db *gorm.DB, caller *models.Identity, otherID string) (*models.Identity, error)

	// StartOrGet возвращает существующий диалог пары или создает новый.
	StartOrGet(db *gorm.DB, caller *models.Identity, req *dto.StartConversationRequest) (*dto.ConversationResponse, error)
	ListConversations(db *gorm.DB, caller *models.Identity) (*dto.ConversationListResponse, error)
	GetConversation(db *gorm.DB, caller *models.Identity, convID string) (*dto.ConversationResponse, error)

	SendMessage(db *gorm.DB, caller *models.Identity, convID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	ListMessages(db *gorm.DB, caller *models.Identity, convID string, criteria dto.MessageCriteria) (*dto.MessageListResponse, error)
	MarkRead(db *gorm.DB, caller *models.Identity, convID string) (*dto.MarkReadResponse, error)
	Mute(db *gorm.DB, caller *models.Identity, convID string, muted bool) error
	DeleteMessage(db *gorm.DB, caller *models.Identity, messageID string) error

	// SetConversationActive деактивирует или возвращает диалог. Admin-операция.
	SetConversationActive(db *gorm.DB, convID string, active bool) error

	// Тред ревью-сессии: доступ у студента, ревьюера и advisor сессии.
	SendSessionMessage(db *gorm.DB, caller *models.Identity, sessionID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	ListSessionMessages(db *gorm.DB, caller *models.Identity, sessionID string, criteria dto.MessageCriteria) (*dto.MessageListResponse, error)
}

type chatService struct {
	chatRepo        repositories.ChatRepository
	chatRequestRepo repositories.ChatRequestRepository
	reviewRepo      repositories.ReviewRepository
	identitySvc     IdentityService
	tracker         *presence.Tracker
	dispatcher      notifier.Dispatcher
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	chatRequestRepo repositories.ChatRequestRepository,
	reviewRepo repositories.ReviewRepository,
	identitySvc IdentityService,
	tracker *presence.Tracker,
	dispatcher notifier.Dispatcher,
) ChatService {
	return &chatService{
		chatRepo:        chatRepo,
		chatRequestRepo: chatRequestRepo,
		reviewRepo:      reviewRepo,
		identitySvc:     identitySvc,
		tracker:         tracker,
		dispatcher:      dispatcher,
	}
}

func (s *chatService) CanConverse(db *gorm.DB, caller *models.Identity, otherID string) (*models.Identity, error) {
	if otherID == caller.ID {
		return nil, apperrors.ErrSelfConversation
	}

	other, err := s.identitySvc.Resolve(db, otherID)
	if err != nil {
		return nil, err
	}

	switch auth.CheckRolePair(caller.Role, other.Role) {
	case auth.PairAllowed:
		return other, nil
	case auth.PairNeedsApproval:
		studentID, reviewerID := orientApprovalPair(caller, other)
		approved, err := s.chatRequestRepo.HasApproved(db, studentID, reviewerID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if approved {
			return other, nil
		}
		return nil, apperrors.ErrChatNotAllowed.WithDetails(
			"an approved chat request is required for reviewer-student messaging")
	}
	return nil, apperrors.ErrChatNotAllowed
}

func (s *chatService) StartOrGet(db *gorm.DB, caller *models.Identity, req *dto.StartConversationRequest) (*dto.ConversationResponse, error) {
	other, err := s.CanConverse(db, caller, req.RecipientID)
	if err != nil {
		return nil, err
	}

	conv, err := s.chatRepo.FindConversationBetween(db, caller.ID, other.ID)
	if err == nil {
		return s.buildConversationResponse(db, conv, caller)
	}
	if !apperrors.Is(err, repositories.ErrConversationNotFound) {
		return nil, apperrors.InternalError(err)
	}

	conv = &models.Conversation{
		ParticipantAID:   caller.ID,
		ParticipantBID:   other.ID,
		ParticipantATag:  caller.Tag,
		ParticipantBTag:  other.Tag,
		ParticipantARole: caller.Role,
		ParticipantBRole: other.Role,
		IsActive:         true,
		CreatedBy:        caller.ID,
	}

	if err := s.chatRepo.CreateConversation(db, conv); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.Info("conversation created",
		"conversationId", conv.ID,
		"createdBy", caller.ID,
		"recipientId", other.ID,
	)
	return s.buildConversationResponse(db, conv, caller)
}

func (s *chatService) ListConversations(db *gorm.DB, caller *models.Identity) (*dto.ConversationListResponse, error) {
	convs, err := s.chatRepo.FindIdentityConversations(db, caller.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	peerIDs := make([]string, 0, len(convs))
	for i := range convs {
		if peerID, _, _, ok := convs[i].OtherParticipant(caller.ID); ok {
			peerIDs = append(peerIDs, peerID)
		}
	}
	peers, err := s.identitySvc.ResolveMany(db, peerIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		items = append(items, s.conversationResponse(&convs[i], caller, peers))
	}
	return &dto.ConversationListResponse{Conversations: items, Total: len(items)}, nil
}

func (s *chatService) GetConversation(db *gorm.DB, caller *models.Identity, convID string) (*dto.ConversationResponse, error) {
	conv, err := s.chatRepo.FindConversationByID(db, convID)
	if err != nil {
		return nil, s.conversationError(err)
	}
	if !conv.HasParticipant(caller.ID) && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrNotParticipant
	}
	return s.buildConversationResponse(db, conv, caller)
}

func (s *chatService) SendMessage(db *gorm.DB, caller *models.Identity, convID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	conv, err := s.chatRepo.FindConversationByID(db, convID)
	if err != nil {
		return nil, s.conversationError(err)
	}
	if !conv.HasParticipant(caller.ID) {
		return nil, apperrors.ErrNotParticipant
	}
	if !conv.IsActive {
		return nil, apperrors.ErrInvalidOperation("chat", "Conversation is deactivated")
	}

	content, messageType, err := normalizeMessage(req)
	if err != nil {
		return nil, err
	}

	recipientID, _, _, _ := conv.OtherParticipant(caller.ID)

	message := &models.Message{
		ConversationID: &conv.ID,
		SenderID:       caller.ID,
		SenderTag:      caller.Tag,
		Content:        content,
		MessageType:    messageType,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.chatRepo.CreateMessage(tx, message); err != nil {
			return err
		}
		return s.chatRepo.UpdateConversationOnMessage(tx, conv.ID, previewOf(content), message.CreatedAt, recipientID)
	})
	if err != nil {
		return nil, s.conversationError(err)
	}

	s.fanOutMessage(db, conv, message, caller, recipientID)

	resp := dto.MessageResponseFrom(message)
	resp.SenderName = caller.DisplayName
	return resp, nil
}

// fanOutMessage раздает свежее сообщение после коммита: событие receive
// в комнату треда, личный newMessage получателю, durable-уведомление
// через диспетчер. Мьют получателя гасит только внешний push.
func (s *chatService) fanOutMessage(db *gorm.DB, conv *models.Conversation, message *models.Message, sender *models.Identity, recipientID string) {
	payload := dto.MessageResponseFrom(message)
	payload.SenderName = sender.DisplayName

	s.dispatcher.PushRoom(conv.ID, sender.ID, notifier.EventReceive, payload)
	s.dispatcher.PushLive(recipientID, notifier.EventNewMessage, payload)

	recipient, err := s.identitySvc.Resolve(db, recipientID)
	if err != nil {
		logger.Warn("message recipient not resolved, durable notification skipped",
			"conversationId", conv.ID, "recipientId", recipientID)
		return
	}

	s.dispatcher.Notify(notifier.Event{
		Recipient:  recipient,
		Sender:     sender,
		Type:       models.NotificationTypeChatMessage,
		Title:      sender.DisplayName,
		Message:    previewOf(message.Content),
		Link:       "/chat/" + conv.ID,
		EntityType: "conversation",
		EntityID:   conv.ID,
		Data: map[string]interface{}{
			"conversationId": conv.ID,
			"messageId":      message.ID,
		},
		Dedup:    true,
		SkipPush: conv.IsMutedBy(recipientID),
	})
}

func (s *chatService) ListMessages(db *gorm.DB, caller *models.Identity, convID string, criteria dto.MessageCriteria) (*dto.MessageListResponse, error) {
	conv, err := s.chatRepo.FindConversationByID(db, convID)
	if err != nil {
		return nil, s.conversationError(err)
	}
	if !conv.HasParticipant(caller.ID) && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrNotParticipant
	}

	if criteria.Limit <= 0 {
		criteria.Limit = 50
	}
	messages, total, err := s.chatRepo.FindConversationMessages(db, convID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return s.messagePage(db, messages, total, criteria)
}

func (s *chatService) MarkRead(db *gorm.DB, caller *models.Identity, convID string) (*dto.MarkReadResponse, error) {
	conv, err := s.chatRepo.FindConversationByID(db, convID)
	if err != nil {
		return nil, s.conversationError(err)
	}
	if !conv.HasParticipant(caller.ID) {
		return nil, apperrors.ErrNotParticipant
	}

	var marked int64
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		marked, err = s.chatRepo.MarkConversationRead(tx, convID, caller.ID)
		if err != nil {
			return err
		}
		return s.chatRepo.ResetUnread(tx, convID, caller.ID)
	})
	if err != nil {
		return nil, s.conversationError(err)
	}

	return &dto.MarkReadResponse{ConversationID: convID, MarkedCount: marked}, nil
}

func (s *chatService) Mute(db *gorm.DB, caller *models.Identity, convID string, muted bool) error {
	conv, err := s.chatRepo.FindConversationByID(db, convID)
	if err != nil {
		return s.conversationError(err)
	}
	if !conv.HasParticipant(caller.ID) {
		return apperrors.ErrNotParticipant
	}

	if err := s.chatRepo.SetMuted(db, convID, caller.ID, muted); err != nil {
		return s.conversationError(err)
	}
	return nil
}

func (s *chatService) DeleteMessage(db *gorm.DB, caller *models.Identity, messageID string) error {
	err := s.chatRepo.SoftDeleteMessage(db, messageID, caller.ID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrMessageNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *chatService) SetConversationActive(db *gorm.DB, convID string, active bool) error {
	if err := s.chatRepo.SetConversationActive(db, convID, active); err != nil {
		return s.conversationError(err)
	}
	logger.Info("conversation active flag changed", "conversationId", convID, "active", active)
	return nil
}

func (s *chatService) SendSessionMessage(db *gorm.DB, caller *models.Identity, sessionID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	session, err := s.sessionForParty(db, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.ReviewCancelled {
		return nil, apperrors.ErrInvalidOperation("review", "Cannot post messages to a cancelled session")
	}

	content, messageType, err := normalizeMessage(req)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		ReviewSessionID: &session.ID,
		SenderID:        caller.ID,
		SenderTag:       caller.Tag,
		Content:         content,
		MessageType:     messageType,
	}
	if err := s.chatRepo.CreateMessage(db, message); err != nil {
		return nil, apperrors.InternalError(err)
	}

	payload := dto.MessageResponseFrom(message)
	payload.SenderName = caller.DisplayName

	s.dispatcher.PushRoom(session.ID, caller.ID, notifier.EventReceive, payload)
	for _, partyID := range sessionParties(session) {
		if partyID == caller.ID {
			continue
		}
		s.dispatcher.PushLive(partyID, notifier.EventNewMessage, payload)
	}

	return payload, nil
}

func (s *chatService) ListSessionMessages(db *gorm.DB, caller *models.Identity, sessionID string, criteria dto.MessageCriteria) (*dto.MessageListResponse, error) {
	if _, err := s.sessionForParty(db, caller, sessionID); err != nil {
		return nil, err
	}

	if criteria.Limit <= 0 {
		criteria.Limit = 50
	}
	messages, total, err := s.chatRepo.FindSessionMessages(db, sessionID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return s.messagePage(db, messages, total, criteria)
}

func (s *chatService) sessionForParty(db *gorm.DB, caller *models.Identity, sessionID string) (*models.ReviewSession, error) {
	session, err := s.reviewRepo.FindByID(db, sessionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrReviewSessionNotFound) {
			return nil, apperrors.ErrReviewSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if !session.IsParty(caller.ID) && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrReviewAccessDenied
	}
	return session, nil
}

// messagePage переводит страницу из порядка выборки (свежие первыми)
// в хронологию и подставляет имена отправителей.
func (s *chatService) messagePage(db *gorm.DB, messages []models.Message, total int64, criteria dto.MessageCriteria) (*dto.MessageListResponse, error) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	senderIDs := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for i := range messages {
		if _, ok := seen[messages[i].SenderID]; !ok {
			seen[messages[i].SenderID] = struct{}{}
			senderIDs = append(senderIDs, messages[i].SenderID)
		}
	}
	senders, err := s.identitySvc.ResolveMany(db, senderIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MessageResponse, 0, len(messages))
	for i := range messages {
		item := dto.MessageResponseFrom(&messages[i])
		if sender, ok := senders[messages[i].SenderID]; ok {
			item.SenderName = sender.DisplayName
		}
		items = append(items, item)
	}

	return &dto.MessageListResponse{
		Messages: items,
		Total:    total,
		Limit:    criteria.Limit,
		Offset:   criteria.Offset,
		HasMore:  int64(criteria.Offset+len(items)) < total,
	}, nil
}

func (s *chatService) buildConversationResponse(db *gorm.DB, conv *models.Conversation, viewer *models.Identity) (*dto.ConversationResponse, error) {
	peers := map[string]*models.Identity{}
	if peerID, _, _, ok := conv.OtherParticipant(viewer.ID); ok {
		peer, err := s.identitySvc.Resolve(db, peerID)
		if err == nil {
			peers[peerID] = peer
		} else if !apperrors.Is(err, apperrors.ErrIdentityNotFound) {
			return nil, err
		}
	}
	return s.conversationResponse(conv, viewer, peers), nil
}

func (s *chatService) conversationResponse(conv *models.Conversation, viewer *models.Identity, peers map[string]*models.Identity) *dto.ConversationResponse {
	ids := conv.ParticipantIDs()
	tags := conv.ParticipantTags()
	roles := conv.ParticipantRoles()

	resp := &dto.ConversationResponse{
		ID:                 conv.ID,
		ParticipantIDs:     ids[:],
		ParticipantTags:    tags[:],
		ParticipantRoles:   roles[:],
		LastMessagePreview: conv.LastMessagePreview,
		LastMessageAt:      conv.LastMessageAt,
		UnreadCount:        conv.UnreadFor(viewer.ID),
		IsMuted:            conv.IsMutedBy(viewer.ID),
		IsActive:           conv.IsActive,
		CreatedBy:          conv.CreatedBy,
		CreatedAt:          conv.CreatedAt,
		UpdatedAt:          conv.UpdatedAt,
	}

	peerID, peerTag, peerRole, ok := conv.OtherParticipant(viewer.ID)
	if !ok {
		// Наблюдатель не участник (admin): peer не заполняется
		return resp
	}

	peerResp := &dto.PeerResponse{
		ID:            peerID,
		Role:          peerRole,
		CollectionTag: peerTag,
		IsOnline:      s.tracker.IsOnline(peerID),
	}
	if peer, found := peers[peerID]; found {
		peerResp.DisplayName = peer.DisplayName
	}
	resp.Peer = peerResp
	return resp
}

func (s *chatService) conversationError(err error) error {
	if apperrors.Is(err, repositories.ErrConversationNotFound) {
		return apperrors.ErrConversationNotFound
	}
	return apperrors.InternalError(err)
}

// normalizeMessage применяет общие для обоих транспортов (REST, ws)
// проверки содержимого. Тип system зарезервирован за сервером.
func normalizeMessage(req *dto.SendMessageRequest) (string, models.MessageType, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", "", apperrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return "", "", apperrors.ErrMessageTooLong
	}

	messageType := req.MessageType
	switch messageType {
	case "":
		messageType = models.MessageTypeText
	case models.MessageTypeText, models.MessageTypeFile:
	default:
		return "", "", apperrors.ErrInvalidMessageType
	}
	return content, messageType, nil
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= models.PreviewLength {
		return content
	}
	return string(runes[:models.PreviewLength])
}

func sessionParties(session *models.ReviewSession) []string {
	parties := []string{session.StudentID, session.ReviewerID}
	if session.AdvisorID != session.StudentID && session.AdvisorID != session.ReviewerID {
		parties = append(parties, session.AdvisorID)
	}
	return parties
}
