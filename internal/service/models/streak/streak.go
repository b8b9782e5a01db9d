package streak

import "time"

// Streak counts consecutive ordering activity for a user.
type Streak struct {
	UserID        string    `json:"userId"`
	CurrentStreak int       `json:"currentStreak"`
	LastOrderAt   time.Time `json:"lastOrderAt"`
}
