package istreakrepo

import (
	"context"
	"time"
)

// IStreakRepository is an interface for order streak repository.
type IStreakRepository interface {
	// CreateIfAbsent creates a streak of one for the user and reports whether
	// a row was created.
	CreateIfAbsent(ctx context.Context, userID string, at time.Time) (bool, error)
}
