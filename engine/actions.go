package engine

import (
	"context"
	"fmt"

	"github.com/youtstadi/BotShkiperaPredlozhka/dialog"
	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

// ProcessCallback routes one button press. Every mutating branch checks the
// actor's role first and answers with an explicit denial when it fails.
func (e *Engine) ProcessCallback(ctx context.Context, cb *transport.Callback) error {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("workflow execution exception", "err", r, "from", cb.FromID, "token", cb.Token)
		}
	}()

	act, err := parseToken(cb.Token)
	if err != nil {
		e.Logger.Warn("unparseable callback token", "token", cb.Token, "from", cb.FromID)
		e.answer(ctx, cb, "unknown action", false)
		return nil
	}

	switch act.kind {
	case actApprove, actReject:
		return e.handleDecisionButton(ctx, cb, act)
	case actApproveComment, actRejectComment:
		return e.handleCommentButton(ctx, cb, act)
	case actCancel:
		if err := e.Dialogs.Cancel(ctx, cb.FromID); err != nil {
			return err
		}
		e.answer(ctx, cb, "input cancelled", false)
		return nil
	default:
		return e.handleAdminButton(ctx, cb, act)
	}
}

func (e *Engine) handleDecisionButton(ctx context.Context, cb *transport.Callback, act action) error {
	if !e.canModerate(cb.FromID) {
		forbiddenActions.Inc()
		e.answer(ctx, cb, "you are not a moderator", true)
		return nil
	}
	dec, err := e.decide(ctx, act.itemID, cb.FromID, cb.FromHandle, act.kind == actApprove, "")
	if err == modqueue.ErrNotFound || err == modqueue.ErrAlreadyHandled {
		e.answer(ctx, cb, decisionErrorText(err), false)
		return nil
	} else if err != nil {
		return err
	}
	e.answer(ctx, cb, decisionDoneText(dec), dec.publishFailed)
	return nil
}

func (e *Engine) handleCommentButton(ctx context.Context, cb *transport.Callback, act action) error {
	if !e.canModerate(cb.FromID) {
		forbiddenActions.Inc()
		e.answer(ctx, cb, "you are not a moderator", true)
		return nil
	}
	// cheap existence check so the moderator isn't sent into a dialog for a
	// dead item; the definitive check happens again at resolution time
	it, err := e.Queue.Get(ctx, act.itemID)
	if err == modqueue.ErrNotFound {
		e.answer(ctx, cb, decisionErrorText(err), false)
		return nil
	} else if err != nil {
		return err
	}
	if it.Terminal() {
		e.answer(ctx, cb, decisionErrorText(modqueue.ErrAlreadyHandled), false)
		return nil
	}

	kind := dialog.KindApproveComment
	verb := "approving"
	if act.kind == actRejectComment {
		kind = dialog.KindRejectComment
		verb = "rejecting"
	}
	if err := e.Dialogs.Open(ctx, dialog.Dialog{ActorID: cb.FromID, Kind: kind, ItemID: act.itemID}); err != nil {
		return err
	}
	dialogsOpened.WithLabelValues(string(kind)).Inc()
	e.answer(ctx, cb, "send the comment as your next message", false)
	e.promptWithCancel(ctx, pressedChat(cb), fmt.Sprintf("%s, send a comment for submission %d (%s it)",
		handleOrID(cb.FromHandle, cb.FromID), act.itemID, verb))
	return nil
}

func (e *Engine) handleAdminButton(ctx context.Context, cb *transport.Callback, act action) error {
	if !e.Settings.IsAdmin(cb.FromID) {
		forbiddenActions.Inc()
		e.answer(ctx, cb, "you are not an admin", true)
		return nil
	}

	switch act.kind {
	case actAdminPanel:
		e.answer(ctx, cb, "", false)
		return e.SendAdminPanel(ctx, cb.FromID, transport.Destination{ChatID: cb.Message.ChatID})

	case actSetField:
		if err := e.Dialogs.Open(ctx, dialog.Dialog{ActorID: cb.FromID, Kind: dialog.KindSetting, Field: act.field}); err != nil {
			return err
		}
		dialogsOpened.WithLabelValues(string(dialog.KindSetting)).Inc()
		min, max, _ := settings.FieldBounds(act.field)
		e.answer(ctx, cb, "", false)
		e.promptWithCancel(ctx, pressedChat(cb), fmt.Sprintf("send the new value for %s (between %d and %d)", act.field, min, max))
		return nil

	case actRosterEdit:
		if err := e.Dialogs.Open(ctx, dialog.Dialog{ActorID: cb.FromID, Kind: dialog.KindRosterEdit, Role: act.role, Op: act.op}); err != nil {
			return err
		}
		dialogsOpened.WithLabelValues(string(dialog.KindRosterEdit)).Inc()
		e.answer(ctx, cb, "", false)
		e.promptWithCancel(ctx, pressedChat(cb), fmt.Sprintf("send the user id to %s as %s", act.op, act.role))
		return nil

	case actSave:
		if err := e.Settings.Save(); err != nil {
			e.answer(ctx, cb, "saving settings failed, check the logs", true)
			return nil
		}
		e.answer(ctx, cb, "settings saved", false)
		return nil

	case actClearQueue:
		n, err := e.Queue.ClearAll(ctx)
		if err != nil {
			return err
		}
		e.answer(ctx, cb, fmt.Sprintf("queue cleared, %d items removed", n), false)
		return nil

	case actStats:
		st, err := e.Queue.Stats(ctx)
		if err != nil {
			return err
		}
		e.answer(ctx, cb, "", false)
		e.sendText(ctx, transport.Destination{ChatID: cb.Message.ChatID}, statsText(st))
		return nil
	}
	e.answer(ctx, cb, "unknown action", false)
	return nil
}

// SendAdminPanel posts the admin control panel. Forbidden for non-admins.
func (e *Engine) SendAdminPanel(ctx context.Context, actorID int64, dest transport.Destination) error {
	if !e.Settings.IsAdmin(actorID) {
		forbiddenActions.Inc()
		return ErrForbidden
	}
	cfg := e.Settings.Get()
	text := fmt.Sprintf(
		"admin panel\nphoto limit: %dMB\nvideo limit: %dMB\nqueue capacity: %d\ncleanup window: %dh\nmoderators: %d\nadmins: %d",
		cfg.MaxPhotoSizeMB, cfg.MaxVideoSizeMB, cfg.MaxPendingPosts, cfg.CleanupIntervalHours, len(cfg.Moderators), len(cfg.Admins))
	buttons := []transport.Button{
		{Label: "photo limit", Token: setFieldToken(settings.FieldMaxPhotoSizeMB)},
		{Label: "video limit", Token: setFieldToken(settings.FieldMaxVideoSizeMB)},
		{Label: "queue capacity", Token: setFieldToken(settings.FieldMaxPendingPosts)},
		{Label: "cleanup hours", Token: setFieldToken(settings.FieldCleanupIntervalHours)},
		{Label: "add moderator", Token: rosterToken(dialog.RosterAdd, settings.RoleModerator)},
		{Label: "remove moderator", Token: rosterToken(dialog.RosterRemove, settings.RoleModerator)},
		{Label: "add admin", Token: rosterToken(dialog.RosterAdd, settings.RoleAdmin)},
		{Label: "remove admin", Token: rosterToken(dialog.RosterRemove, settings.RoleAdmin)},
		{Label: "queue stats", Token: tokenStats},
		{Label: "clear queue", Token: tokenClearQueue},
		{Label: "save settings", Token: tokenSave},
	}
	if _, err := e.Transport.SendText(ctx, dest, text, buttons); err != nil {
		transportFailures.WithLabelValues("send_text").Inc()
		return err
	}
	return nil
}

// promptWithCancel posts an input prompt with a cancel button into the chat
// where the triggering button lives.
func (e *Engine) promptWithCancel(ctx context.Context, dest transport.Destination, text string) {
	_, err := e.Transport.SendText(ctx, dest, text,
		[]transport.Button{{Label: "cancel", Token: tokenCancel}})
	if err != nil {
		transportFailures.WithLabelValues("send_text").Inc()
		e.Logger.Error("failed to send input prompt", "err", err)
	}
}

func pressedChat(cb *transport.Callback) transport.Destination {
	return transport.Destination{ChatID: cb.Message.ChatID}
}

func (e *Engine) answer(ctx context.Context, cb *transport.Callback, text string, alert bool) {
	if err := e.Transport.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
		transportFailures.WithLabelValues("answer_callback").Inc()
		e.Logger.Error("failed to answer callback", "from", cb.FromID, "err", err)
	}
}
