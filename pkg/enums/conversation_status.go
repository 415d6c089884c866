package enums

import "fmt"

// ConversationStatus tracks whether a support thread accepts new messages.
type ConversationStatus string

const (
	ConversationStatusOpen   ConversationStatus = "open"
	ConversationStatusClosed ConversationStatus = "closed"
)

var validConversationStatuses = []ConversationStatus{
	ConversationStatusOpen,
	ConversationStatusClosed,
}

// String implements fmt.Stringer.
func (s ConversationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ConversationStatus.
func (s ConversationStatus) IsValid() bool {
	for _, candidate := range validConversationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseConversationStatus converts raw input into a ConversationStatus.
func ParseConversationStatus(value string) (ConversationStatus, error) {
	for _, candidate := range validConversationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation status %q", value)
}
