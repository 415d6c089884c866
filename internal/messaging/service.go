package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the messaging service.
type ServiceParams struct {
	Repo Repository
	Tx   txRunner
	Now  func() time.Time
}

// Service exposes business rules for member-to-staff support threads.
type Service interface {
	StartConversation(ctx context.Context, ident auth.Identity, input StartConversationInput) (ConversationDTO, error)
	CloseConversation(ctx context.Context, ident auth.Identity, conversationID uuid.UUID) (ConversationDTO, error)
	ListConversations(ctx context.Context, ident auth.Identity, params pagination.Params) (*ConversationListDTO, error)
	SendMessage(ctx context.Context, ident auth.Identity, conversationID uuid.UUID, content string) (MessageDTO, error)
	ListMessages(ctx context.Context, ident auth.Identity, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error)
	UnreadCount(ctx context.Context, ident auth.Identity, conversationID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds a messaging service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "messaging repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, tx: params.Tx, now: now}, nil
}

// StartConversation opens a thread and appends its first message in one
// transaction.
func (s *service) StartConversation(ctx context.Context, ident auth.Identity, input StartConversationInput) (ConversationDTO, error) {
	if ident.UserID == uuid.Nil {
		return ConversationDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return ConversationDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return ConversationDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}

	conversation := &models.Conversation{
		UserID: ident.UserID,
		Title:  title,
		Status: enums.ConversationStatusOpen,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateConversation(ctx, conversation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
		}
		_, err := repo.AppendMessage(ctx, &models.Message{
			ConversationID: conversation.ID,
			SenderID:       ident.UserID,
			Content:        content,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append first message")
		}
		return nil
	})
	if err != nil {
		return ConversationDTO{}, err
	}
	return conversationToDTO(conversation, 0), nil
}

// CloseConversation ends a thread; staff only, idempotent.
func (s *service) CloseConversation(ctx context.Context, ident auth.Identity, conversationID uuid.UUID) (ConversationDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityManageConversations); err != nil {
		return ConversationDTO{}, err
	}
	if _, err := s.findConversation(ctx, conversationID); err != nil {
		return ConversationDTO{}, err
	}
	if _, err := s.repo.CloseConversation(ctx, conversationID); err != nil {
		return ConversationDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close conversation")
	}
	conversation, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return ConversationDTO{}, err
	}
	return conversationToDTO(conversation, 0), nil
}

// ListConversations shows members their own threads; staff see all.
func (s *service) ListConversations(ctx context.Context, ident auth.Identity, params pagination.Params) (*ConversationListDTO, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	scope := &ident.UserID
	if ident.IsAdmin() {
		scope = nil
	}
	list, err := s.repo.ListConversations(ctx, scope, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	for i := range list.Items {
		unread, err := s.repo.UnreadCount(ctx, list.Items[i].ID, ident.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread")
		}
		list.Items[i].UnreadCount = unread
	}
	return list, nil
}

// SendMessage appends to an open thread. Messages are never edited or
// deleted.
func (s *service) SendMessage(ctx context.Context, ident auth.Identity, conversationID uuid.UUID, content string) (MessageDTO, error) {
	conversation, err := s.findForParticipant(ctx, ident, conversationID)
	if err != nil {
		return MessageDTO{}, err
	}
	if conversation.Status != enums.ConversationStatusOpen {
		return MessageDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "conversation is closed")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "message content is required")
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       ident.UserID,
		Content:        content,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.AppendMessage(ctx, message); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append message")
		}
		if err := repo.TouchConversation(ctx, conversationID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch conversation")
		}
		return nil
	})
	if err != nil {
		return MessageDTO{}, err
	}
	return messageToDTO(message), nil
}

// ListMessages returns the thread oldest first and marks everything the
// counterpart sent as read.
func (s *service) ListMessages(ctx context.Context, ident auth.Identity, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error) {
	if _, err := s.findForParticipant(ctx, ident, conversationID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListMessages(ctx, conversationID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	if _, err := s.repo.MarkMessagesRead(ctx, conversationID, ident.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return list, nil
}

func (s *service) UnreadCount(ctx context.Context, ident auth.Identity, conversationID uuid.UUID) (int64, error) {
	if _, err := s.findForParticipant(ctx, ident, conversationID); err != nil {
		return 0, err
	}
	count, err := s.repo.UnreadCount(ctx, conversationID, ident.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread")
	}
	return count, nil
}

func (s *service) findConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	conversation, err := s.repo.FindConversation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	return conversation, nil
}

// findForParticipant loads the thread and checks the caller is the member
// who opened it or staff.
func (s *service) findForParticipant(ctx context.Context, ident auth.Identity, id uuid.UUID) (*models.Conversation, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	conversation, err := s.findConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != ident.UserID && !ident.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "conversation belongs to another member")
	}
	return conversation, nil
}
