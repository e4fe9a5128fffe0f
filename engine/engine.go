// Package engine implements the moderation workflow: submissions enter the
// queue and are mirrored to the review channel, moderator actions decide
// them, approved items get published, and admins tune runtime settings.
//
// The engine holds no locks of its own. Each store (queue, dialogs,
// settings) serializes its own mutations, and every transport call happens
// outside any store's critical section using a snapshot of the item.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/youtstadi/BotShkiperaPredlozhka/dialog"
	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

// runtime for the moderation workflow, wiring stores to the chat transport.
//
// All fields except Dedupe must be non-nil.
type Engine struct {
	Logger    *slog.Logger
	Queue     *modqueue.Queue
	Dialogs   *dialog.Workflow
	Settings  *settings.Store
	Transport transport.Client

	// where review copies go, and where approved items get published
	ReviewDest  transport.Destination
	PublishDest transport.Destination

	// optional: recently seen submitter/contentRef pairs, to acknowledge
	// resubmissions without queueing them twice
	Dedupe *expirable.LRU[string, bool]
}

func (e *Engine) canModerate(actorID int64) bool {
	return e.Settings.IsModerator(actorID) || e.Settings.IsAdmin(actorID)
}

// ProcessPrivateMessage handles a non-command message in a private chat.
// Free text is offered to the actor's open dialog first; anything the
// dialogs do not consume falls through to the submission path.
func (e *Engine) ProcessPrivateMessage(ctx context.Context, msg *transport.Message) error {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("workflow execution exception", "err", r, "from", msg.FromID)
		}
	}()

	if msg.Text != "" {
		res, err := e.Dialogs.Resolve(ctx, msg.FromID, msg.Text)
		if err != nil {
			return err
		}
		switch res.State {
		case dialog.StateConsumed:
			return e.applyResolution(ctx, msg.FromID, msg.FromHandle, privateChat(msg.FromID), res)
		case dialog.StateInvalid:
			e.sendText(ctx, privateChat(msg.FromID), res.Constraint)
			return nil
		}
		// StateNone, or a dialog owned by someone else: treat as a submission
	}
	return e.processSubmission(ctx, msg)
}

// ProcessReviewMessage handles free text in the shared review channel. Only
// dialog input is expected there; a message from an actor who does not own
// the open dialog is deliberately ignored so comment replies cannot
// cross-apply.
func (e *Engine) ProcessReviewMessage(ctx context.Context, msg *transport.Message) error {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("workflow execution exception", "err", r, "from", msg.FromID)
		}
	}()

	if msg.Text == "" {
		return nil
	}
	res, err := e.Dialogs.Resolve(ctx, msg.FromID, msg.Text)
	if err != nil {
		return err
	}
	switch res.State {
	case dialog.StateConsumed:
		return e.applyResolution(ctx, msg.FromID, msg.FromHandle, e.ReviewDest, res)
	case dialog.StateInvalid:
		e.sendText(ctx, e.ReviewDest, res.Constraint)
	case dialog.StateNotMine:
		e.Logger.Info("review-channel text ignored, dialog owned by another actor",
			"from", msg.FromID, "owner", res.Dialog.ActorID)
	}
	return nil
}

// applyResolution runs the workflow step a consumed dialog was waiting for.
// Target validity is re-checked here, not at dialog-open time, so an item
// decided or evicted in the meantime yields the already-handled notice.
func (e *Engine) applyResolution(ctx context.Context, actorID int64, actorHandle string, replyTo transport.Destination, res *dialog.Result) error {
	d := res.Dialog
	switch d.Kind {
	case dialog.KindApproveComment, dialog.KindRejectComment:
		approve := d.Kind == dialog.KindApproveComment
		dec, err := e.decide(ctx, d.ItemID, actorID, actorHandle, approve, res.Comment)
		if err != nil {
			e.sendText(ctx, replyTo, decisionErrorText(err))
			return nil
		}
		e.sendText(ctx, replyTo, decisionDoneText(dec))
		return nil

	case dialog.KindSetting:
		if !e.Settings.IsAdmin(actorID) {
			forbiddenActions.Inc()
			e.sendText(ctx, replyTo, "you are not an admin")
			return nil
		}
		if err := e.Settings.SetField(d.Field, res.Number); err != nil {
			e.sendText(ctx, replyTo, err.Error())
			return nil
		}
		e.sendText(ctx, replyTo, fmt.Sprintf("%s set to %d (save settings to persist)", d.Field, res.Number))
		return nil

	case dialog.KindRosterEdit:
		if !e.Settings.IsAdmin(actorID) {
			forbiddenActions.Inc()
			e.sendText(ctx, replyTo, "you are not an admin")
			return nil
		}
		var err error
		if d.Op == dialog.RosterAdd {
			err = e.Settings.AddRole(d.Role, res.RosterID)
		} else {
			err = e.Settings.RemoveRole(d.Role, res.RosterID)
		}
		switch {
		case err == settings.ErrLastAdmin:
			e.sendText(ctx, replyTo, "cannot remove the last admin")
		case err == settings.ErrNotInRoster:
			e.sendText(ctx, replyTo, fmt.Sprintf("%d is not in the %s roster", res.RosterID, d.Role))
		case err != nil:
			e.sendText(ctx, replyTo, err.Error())
		default:
			e.sendText(ctx, replyTo, fmt.Sprintf("%s roster updated: %s %d (save settings to persist)", d.Role, d.Op, res.RosterID))
		}
		return nil
	}
	e.Logger.Warn("consumed dialog with unexpected kind", "kind", d.Kind, "actor", actorID)
	return nil
}

// sendText is a fire-and-soft-fail notification helper. Transport failures
// here are logged and counted, never propagated.
func (e *Engine) sendText(ctx context.Context, dest transport.Destination, text string) {
	if _, err := e.Transport.SendText(ctx, dest, text, nil); err != nil {
		transportFailures.WithLabelValues("send_text").Inc()
		e.Logger.Error("failed to send notification", "chat", dest.ChatID, "err", err)
	}
}

func privateChat(userID int64) transport.Destination {
	return transport.Destination{ChatID: userID}
}

func handleOrID(handle string, id int64) string {
	if handle != "" {
		return "@" + handle
	}
	return fmt.Sprintf("id %d", id)
}

func statsText(st modqueue.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "queue stats\n")
	fmt.Fprintf(&b, "pending: %d\n", st.PendingCount)
	fmt.Fprintf(&b, "unique submitters: %d\n", st.UniqueSubmitters)
	fmt.Fprintf(&b, "submitted: %d\n", st.TotalSubmitted)
	fmt.Fprintf(&b, "approved: %d\n", st.TotalApproved)
	fmt.Fprintf(&b, "rejected: %d", st.TotalRejected)
	return b.String()
}
