// Package dialog implements the per-actor interactive state machine that
// layers multi-step inputs ("send the comment", "send the new value") on top
// of single-shot moderation actions.
package dialog

import (
	"context"
	"time"

	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
)

type Kind string

const (
	// next free text is a comment attached to an approval
	KindApproveComment Kind = "approve_comment"
	// next free text is a comment attached to a rejection
	KindRejectComment Kind = "reject_comment"
	// next free text is a numeric settings value
	KindSetting Kind = "setting"
	// next free text is an actor id for a roster edit
	KindRosterEdit Kind = "roster_edit"
)

type RosterOp string

const (
	RosterAdd    RosterOp = "add"
	RosterRemove RosterOp = "remove"
)

// Dialog is the transient state of one actor awaiting a follow-up input.
// At most one dialog exists per actor; opening a new one replaces the old.
type Dialog struct {
	ActorID  int64         `json:"actor_id"`
	Kind     Kind          `json:"kind"`
	ItemID   int64         `json:"item_id,omitempty"`
	Field    string        `json:"field,omitempty"`
	Role     settings.Role `json:"role,omitempty"`
	Op       RosterOp      `json:"op,omitempty"`
	OpenedAt time.Time     `json:"opened_at"`
}

// Store is the persistence interface for open dialogs, keyed by actor id.
// Implementations return copies. The Workflow serializes access.
type Store interface {
	Get(ctx context.Context, actorID int64) (*Dialog, error)
	Set(ctx context.Context, d *Dialog) error
	Delete(ctx context.Context, actorID int64) error
	List(ctx context.Context) ([]*Dialog, error)
}
