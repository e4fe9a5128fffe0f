package modqueue

import (
	"time"
)

type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Item is one submitted piece of content awaiting a moderation decision.
//
// The item is keyed by the originating submission message id, so callback
// tokens on the review copy can encode the key directly.
type Item struct {
	ID              int64     `json:"id"`
	SubmitterID     int64     `json:"submitter_id"`
	SubmitterHandle string    `json:"submitter_handle,omitempty"`
	Kind            MediaKind `json:"kind"`
	ContentRef      string    `json:"content_ref"`
	Caption         string    `json:"caption,omitempty"`
	ReviewChatID    int64     `json:"review_chat_id"`
	ReviewMessageID int64     `json:"review_message_id"`
	CreatedAt       time.Time `json:"created_at"`
	Status          Status    `json:"status"`
}

// Terminal indicates the item has been decided; terminal status never changes.
func (it *Item) Terminal() bool {
	return it.Status != StatusPending
}

// SubmitterStats are historical per-submitter counters. They are created
// lazily on first submission and survive item eviction and queue purges.
type SubmitterStats struct {
	Submitted int `json:"submitted"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
}

// Stats is an aggregated snapshot of queue state.
type Stats struct {
	PendingCount     int `json:"pending_count"`
	UniqueSubmitters int `json:"unique_submitters"`
	TotalSubmitted   int `json:"total_submitted"`
	TotalApproved    int `json:"total_approved"`
	TotalRejected    int `json:"total_rejected"`
}
