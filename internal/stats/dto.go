package stats

import "github.com/google/uuid"

// TopBookDTO pairs a catalog entry with its all-time borrow count.
type TopBookDTO struct {
	BookID      uuid.UUID `json:"book_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	BorrowCount int64     `json:"borrow_count"`
}

// DashboardDTO is the stats payload for the dashboard page. Admin-only
// counters stay zero for members.
type DashboardDTO struct {
	TotalBooks       int64        `json:"total_books"`
	TotalMembers     int64        `json:"total_members,omitempty"`
	ActiveBorrowings int64        `json:"active_borrowings"`
	OverdueCount     int64        `json:"overdue_count,omitempty"`
	OwnActiveLoans   int64        `json:"own_active_loans"`
	OwnPublished     int64        `json:"own_published_books"`
	TopBorrowed      []TopBookDTO `json:"top_borrowed"`
}
