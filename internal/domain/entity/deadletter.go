package entity

import "time"

// DeadLetter is a bus message that exceeded the dispatcher's configured
// delivery-attempt threshold (spec §4.8).
type DeadLetter struct {
	ID         string
	ArticleIDs []int64
	Attempts   int
	LastError  string
	CreatedAt  time.Time
}
