package enums

// Capability names a privileged action checked through users.Authorize.
type Capability string

const (
	CapabilityManageBooks         Capability = "manage_books"
	CapabilityValidateBorrowings  Capability = "validate_borrowings"
	CapabilityViewAllBorrowings   Capability = "view_all_borrowings"
	CapabilityModerateReviews     Capability = "moderate_reviews"
	CapabilityManageConversations Capability = "manage_conversations"
)

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}
