package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// ConversationDTO is a support thread as returned to clients.
type ConversationDTO struct {
	ID          uuid.UUID                `json:"id"`
	UserID      uuid.UUID                `json:"user_id"`
	Title       string                   `json:"title"`
	Status      enums.ConversationStatus `json:"status"`
	UnreadCount int64                    `json:"unread_count"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ConversationListDTO is a cursor-paginated page of threads.
type ConversationListDTO struct {
	Items      []ConversationDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Total      int64             `json:"total"`
}

// MessageDTO is one entry in a thread.
type MessageDTO struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageListDTO is a cursor-paginated page of messages.
type MessageListDTO struct {
	Items      []MessageDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Total      int64        `json:"total"`
}

// StartConversationInput opens a thread with its first message.
type StartConversationInput struct {
	Title   string `json:"title" validate:"required,max=300"`
	Message string `json:"message" validate:"required,max=10000"`
}
