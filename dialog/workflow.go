package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
)

// MaxCommentRunes caps moderator comment length; longer input is truncated,
// not rejected.
const MaxCommentRunes = 512

type State string

const (
	// input accepted, dialog cleared, payload in the result
	StateConsumed State = "consumed"
	// a different actor owns the open dialog; input must not be consumed
	StateNotMine State = "not_mine"
	// the caller has no dialog and none is open; input falls through
	StateNone State = "none"
	// input failed validation; dialog stays open for a retry
	StateInvalid State = "invalid"
)

// Result is the outcome of resolving one free-text input.
type Result struct {
	State  State
	Dialog Dialog

	// payload, populated on StateConsumed depending on Dialog.Kind
	Comment  string
	Number   int
	RosterID int64

	// human-readable constraint, populated on StateInvalid
	Constraint string
}

// Workflow owns all open dialogs. Mutations are serialized through a single
// lock, matching the queue's one-serialization-point-per-store model.
type Workflow struct {
	logger *slog.Logger
	store  Store
	mu     sync.Mutex
}

func NewWorkflow(logger *slog.Logger, store Store) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		logger: logger.With("component", "dialog"),
		store:  store,
	}
}

// Open starts a dialog for an actor, silently replacing any existing one.
func (w *Workflow) Open(ctx context.Context, d Dialog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d.OpenedAt.IsZero() {
		d.OpenedAt = time.Now()
	}
	if err := w.store.Set(ctx, &d); err != nil {
		return err
	}
	w.logger.Info("dialog opened", "actor", d.ActorID, "kind", d.Kind, "item", d.ItemID, "field", d.Field)
	return nil
}

// Cancel clears any dialog for the actor; idempotent.
func (w *Workflow) Cancel(ctx context.Context, actorID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Delete(ctx, actorID)
}

// Active returns the actor's open dialog, or nil.
func (w *Workflow) Active(ctx context.Context, actorID int64) (*Dialog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Get(ctx, actorID)
}

// Resolve feeds one free-text input into the state machine.
//
// If the caller owns a dialog, the input is validated against the dialog
// kind: success consumes the dialog, a validation failure leaves it open and
// reports the constraint. If the caller owns nothing but another actor has a
// dialog open, the input is refused as NotMine so comment replies cannot
// cross-apply between moderators sharing a room.
func (w *Workflow) Resolve(ctx context.Context, actorID int64, input string) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, err := w.store.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		others, err := w.store.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(others) > 0 {
			w.logger.Info("input refused, dialog owned by another actor",
				"actor", actorID, "owner", others[0].ActorID)
			return &Result{State: StateNotMine, Dialog: *others[0]}, nil
		}
		return &Result{State: StateNone}, nil
	}

	res := &Result{Dialog: *d}
	switch d.Kind {
	case KindApproveComment, KindRejectComment:
		res.State = StateConsumed
		res.Comment = truncate(strings.TrimSpace(input), MaxCommentRunes)

	case KindSetting:
		n, err := strconv.Atoi(strings.TrimSpace(input))
		min, max, _ := settings.FieldBounds(d.Field)
		if err != nil || n < min || n > max {
			res.State = StateInvalid
			res.Constraint = fmt.Sprintf("enter a number between %d and %d", min, max)
			return res, nil
		}
		res.State = StateConsumed
		res.Number = n

	case KindRosterEdit:
		id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
		if err != nil || id <= 0 {
			res.State = StateInvalid
			res.Constraint = "enter a numeric user id"
			return res, nil
		}
		res.State = StateConsumed
		res.RosterID = id

	default:
		// unknown kind from an older record: drop it rather than trap the actor
		w.logger.Warn("dropping dialog with unknown kind", "actor", actorID, "kind", d.Kind)
		if err := w.store.Delete(ctx, actorID); err != nil {
			return nil, err
		}
		return &Result{State: StateNone}, nil
	}

	if err := w.store.Delete(ctx, actorID); err != nil {
		return nil, err
	}
	w.logger.Info("dialog consumed", "actor", actorID, "kind", d.Kind)
	return res, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
