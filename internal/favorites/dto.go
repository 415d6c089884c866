package favorites

import (
	"time"

	"github.com/fami1212/modern-e-library-hub/internal/books"
)

// FavoriteDTO wraps the book summary included in a favorites row.
type FavoriteDTO struct {
	Book    books.BookDTO `json:"book"`
	AddedAt time.Time     `json:"added_at"`
}

// FavoriteListDTO is a cursor-paginated page of liked books.
type FavoriteListDTO struct {
	Items      []FavoriteDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	Total      int64         `json:"total"`
}
