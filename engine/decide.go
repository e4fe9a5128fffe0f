package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

// decision is the result of one terminal moderation action, including how
// the post-commit side effects went.
type decision struct {
	item            *modqueue.Item
	moderatorID     int64
	moderatorHandle string
	comment         string
	publishFailed   bool
}

// decide is the single mutation path for both the direct-button action and
// the comment-dialog completion. The status flip commits under the queue
// lock first; everything after is a side effect on a snapshot and is never
// rolled back, even if publishing fails.
func (e *Engine) decide(ctx context.Context, itemID, actorID int64, actorHandle string, approve bool, comment string) (*decision, error) {
	if !e.canModerate(actorID) {
		forbiddenActions.Inc()
		return nil, ErrForbidden
	}

	var item *modqueue.Item
	var err error
	if approve {
		item, err = e.Queue.MarkApproved(ctx, itemID)
	} else {
		item, err = e.Queue.MarkRejected(ctx, itemID)
	}
	if err != nil {
		return nil, err
	}

	dec := &decision{
		item:            item,
		moderatorID:     actorID,
		moderatorHandle: actorHandle,
		comment:         comment,
	}

	e.annotateReviewCopy(ctx, dec)
	if approve {
		dec.publishFailed = !e.publish(ctx, item)
	}
	e.notifySubmitter(ctx, dec)
	return dec, nil
}

// annotateReviewCopy drops the action buttons from the review message and
// stamps it with the verdict and the deciding moderator.
func (e *Engine) annotateReviewCopy(ctx context.Context, dec *decision) {
	ref := transport.MessageRef{ChatID: dec.item.ReviewChatID, MessageID: dec.item.ReviewMessageID}
	if err := e.Transport.EditButtons(ctx, ref, nil); err != nil {
		transportFailures.WithLabelValues("edit_buttons").Inc()
		e.Logger.Error("failed to drop review buttons", "item", dec.item.ID, "err", err)
	}

	var b strings.Builder
	b.WriteString(reviewCaption(dec.item))
	if dec.item.Status == modqueue.StatusApproved {
		fmt.Fprintf(&b, "\n\n✅ approved by %s", handleOrID(dec.moderatorHandle, dec.moderatorID))
	} else {
		fmt.Fprintf(&b, "\n\n❌ rejected by %s", handleOrID(dec.moderatorHandle, dec.moderatorID))
	}
	if dec.comment != "" {
		fmt.Fprintf(&b, "\ncomment: %s", dec.comment)
	}
	if err := e.Transport.EditCaption(ctx, ref, b.String()); err != nil {
		transportFailures.WithLabelValues("edit_caption").Inc()
		e.Logger.Error("failed to annotate review copy", "item", dec.item.ID, "err", err)
	}
}

// publish forwards an approved item to the public destination, anonymously.
// Reports success; a failure is logged and surfaced but the approval stands.
func (e *Engine) publish(ctx context.Context, item *modqueue.Item) bool {
	caption := "approved by moderation!\nsubmitted anonymously"
	if item.Caption != "" {
		caption = item.Caption + "\n\n" + caption
	}
	_, err := e.Transport.SendMedia(ctx, e.PublishDest, string(item.Kind), item.ContentRef, caption, nil)
	if err != nil {
		transportFailures.WithLabelValues("publish").Inc()
		e.Logger.Error("failed to publish approved item", "item", item.ID, "err", err)
		return false
	}
	e.Logger.Info("item published", "item", item.ID)
	return true
}

func (e *Engine) notifySubmitter(ctx context.Context, dec *decision) {
	var b strings.Builder
	if dec.item.Status == modqueue.StatusApproved {
		b.WriteString("your submission was approved and published 🎉")
	} else {
		b.WriteString("your submission was rejected")
	}
	if dec.comment != "" {
		fmt.Fprintf(&b, "\nmoderator comment: %s", dec.comment)
	}
	e.sendText(ctx, privateChat(dec.item.SubmitterID), b.String())
}

func decisionErrorText(err error) string {
	switch {
	case err == modqueue.ErrNotFound:
		return "that submission is gone, it was handled or expired"
	case err == modqueue.ErrAlreadyHandled:
		return "that submission was already handled"
	case err == ErrForbidden:
		return "you are not a moderator"
	}
	return "something went wrong, try again"
}

func decisionDoneText(dec *decision) string {
	if dec.item.Status == modqueue.StatusApproved {
		if dec.publishFailed {
			return fmt.Sprintf("submission %d approved, but publishing failed; it will not be retried", dec.item.ID)
		}
		return fmt.Sprintf("submission %d approved and published", dec.item.ID)
	}
	return fmt.Sprintf("submission %d rejected", dec.item.ID)
}
