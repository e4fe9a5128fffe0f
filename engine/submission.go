package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

func (e *Engine) processSubmission(ctx context.Context, msg *transport.Message) error {
	cfg := e.Settings.Get()

	cls, err := classifySubmission(msg, cfg)
	if err != nil {
		submissionsProcessed.WithLabelValues("rejected").Inc()
		e.Logger.Info("submission rejected by validator", "submitter", msg.FromID, "reason", err)
		e.sendText(ctx, privateChat(msg.FromID), err.Error())
		return nil
	}

	if e.Dedupe != nil {
		key := fmt.Sprintf("%d/%s", msg.FromID, cls.fileRef)
		if _, seen := e.Dedupe.Get(key); seen {
			submissionsProcessed.WithLabelValues("duplicate").Inc()
			e.sendText(ctx, privateChat(msg.FromID), "already received that one, it is waiting for review")
			return nil
		}
	}

	item := modqueue.Item{
		ID:              msg.ID,
		SubmitterID:     msg.FromID,
		SubmitterHandle: msg.FromHandle,
		Kind:            cls.kind,
		ContentRef:      cls.fileRef,
		Caption:         msg.Caption,
	}

	// mirror to the review channel first: the review ref is part of the item
	ref, err := e.Transport.SendMedia(ctx, e.ReviewDest, string(item.Kind), item.ContentRef,
		reviewCaption(&item), reviewButtons(item.ID))
	if err != nil {
		transportFailures.WithLabelValues("send_review").Inc()
		e.Logger.Error("failed to mirror submission to review channel", "submitter", msg.FromID, "err", err)
		e.sendText(ctx, privateChat(msg.FromID), "technical hiccup on our side, try again later")
		return nil
	}
	item.ReviewChatID = ref.ChatID
	item.ReviewMessageID = ref.MessageID

	if _, err := e.Queue.Add(ctx, item); err != nil {
		return fmt.Errorf("queueing submission: %w", err)
	}
	// recorded only after the item is actually queued, so a failed mirror
	// leaves the submitter free to retry
	if e.Dedupe != nil {
		e.Dedupe.Add(fmt.Sprintf("%d/%s", msg.FromID, cls.fileRef), true)
	}
	submissionsProcessed.WithLabelValues("accepted").Inc()

	e.sendText(ctx, privateChat(msg.FromID), "accepted! moderators will review your submission")
	return nil
}

// reviewCaption renders the anonymized annotation on the review copy. The
// submitter's account is shown to moderators only.
func reviewCaption(it *modqueue.Item) string {
	var b strings.Builder
	b.WriteString("new submission\n")
	fmt.Fprintf(&b, "submitter id: %d\n", it.SubmitterID)
	handle := it.SubmitterHandle
	if handle == "" {
		handle = "none"
	}
	fmt.Fprintf(&b, "username: @%s\n", handle)
	fmt.Fprintf(&b, "type: %s", it.Kind)
	if it.Caption != "" {
		fmt.Fprintf(&b, "\n\n%s", it.Caption)
	}
	return b.String()
}

func reviewButtons(itemID int64) []transport.Button {
	return []transport.Button{
		{Label: "✅ Approve", Token: approveToken(itemID)},
		{Label: "❌ Reject", Token: rejectToken(itemID)},
		{Label: "✅ + comment", Token: approveCommentToken(itemID)},
		{Label: "❌ + comment", Token: rejectCommentToken(itemID)},
	}
}
