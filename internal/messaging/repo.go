package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

// Repository encapsulates conversation and message persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateConversation(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error)
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	CloseConversation(ctx context.Context, id uuid.UUID) (int64, error)
	ListConversations(ctx context.Context, userID *uuid.UUID, params pagination.Params) (*ConversationListDTO, error)
	AppendMessage(ctx context.Context, message *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a messaging repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateConversation(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

func (r *repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CloseConversation flips an open thread to closed; zero rows means it was
// already closed.
func (r *repository) CloseConversation(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE conversations
		SET status = 'closed',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'open'
	`, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ListConversations pages threads newest-activity first. A nil userID lists
// every thread, which only staff callers reach.
func (r *repository) ListConversations(ctx context.Context, userID *uuid.UUID, params pagination.Params) (*ConversationListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	base := r.db.WithContext(ctx).Model(&models.Conversation{})
	if userID != nil {
		base = base.Where("user_id = ?", *userID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	query := base.Session(&gorm.Session{})
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var records []models.Conversation
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	items := make([]ConversationDTO, 0, len(records))
	for i := range records {
		items = append(items, conversationToDTO(&records[i], 0))
	}

	return &ConversationListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

func (r *repository) AppendMessage(ctx context.Context, message *models.Message) (*models.Message, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages pages a thread oldest first so clients render it top-down.
func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, params pagination.Params) (*MessageListDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	base := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversationID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	query := base.Session(&gorm.Session{})
	if decodedCursor != nil {
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}
	query = query.Order("created_at ASC").Order("id ASC").Limit(limitWithBuffer)

	var records []models.Message
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	items := make([]MessageDTO, 0, len(records))
	for i := range records {
		items = append(items, messageToDTO(&records[i]))
	}

	return &MessageListDTO{
		Items:      items,
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

// MarkMessagesRead flags everything the reader has not sent.
func (r *repository) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE messages
		SET read = TRUE
		WHERE conversation_id = ? AND sender_id <> ? AND read = FALSE
	`, conversationID, readerID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) UnreadCount(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = FALSE", conversationID, readerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TouchConversation bumps updated_at so idle-thread cleanup sees activity.
func (r *repository) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func conversationToDTO(c *models.Conversation, unread int64) ConversationDTO {
	return ConversationDTO{
		ID:          c.ID,
		UserID:      c.UserID,
		Title:       c.Title,
		Status:      c.Status,
		UnreadCount: unread,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func messageToDTO(m *models.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}
