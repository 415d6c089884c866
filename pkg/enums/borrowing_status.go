package enums

import "fmt"

// BorrowingStatus tracks the lifecycle of a single loan.
type BorrowingStatus string

const (
	BorrowingStatusActive   BorrowingStatus = "active"
	BorrowingStatusReturned BorrowingStatus = "returned"
)

var validBorrowingStatuses = []BorrowingStatus{
	BorrowingStatusActive,
	BorrowingStatusReturned,
}

// String implements fmt.Stringer.
func (s BorrowingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BorrowingStatus.
func (s BorrowingStatus) IsValid() bool {
	for _, candidate := range validBorrowingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBorrowingStatus converts raw input into a BorrowingStatus.
func ParseBorrowingStatus(value string) (BorrowingStatus, error) {
	for _, candidate := range validBorrowingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid borrowing status %q", value)
}
