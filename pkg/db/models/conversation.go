package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// Conversation is a member-to-staff support thread.
type Conversation struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index:conversations_user_id_idx"`
	Title     string                   `gorm:"column:title;not null"`
	Status    enums.ConversationStatus `gorm:"column:status;type:conversation_status;not null;default:'open'"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// Message is one entry in a conversation's append-only sequence.
type Message struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID `gorm:"column:conversation_id;type:uuid;not null;index:messages_conversation_id_idx"`
	SenderID       uuid.UUID `gorm:"column:sender_id;type:uuid;not null"`
	Content        string    `gorm:"column:content;not null"`
	Read           bool      `gorm:"column:read;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
