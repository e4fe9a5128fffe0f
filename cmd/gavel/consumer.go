package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/youtstadi/BotShkiperaPredlozhka/engine"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

// Run drives the long-poll loop until the context is cancelled. Each update
// is handled inline; the engine serializes state mutations internally, and
// in-order handling keeps dialog replies behind the button presses that
// opened them.
func (s *Server) Run(ctx context.Context) error {
	offset, err := s.ReadLastOffset(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("starting update consumer", "offset", offset)

	go s.RunPersistOffset(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, err := s.bot.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			pollErrors.Inc()
			s.logger.Warn("fetching updates failed, backing off", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
				s.lastSeq.Store(offset)
			}
			s.handleUpdate(ctx, &u)
		}
	}
}

func (s *Server) handleUpdate(ctx context.Context, u *transport.Update) {
	switch {
	case u.Callback != nil:
		updatesReceived.WithLabelValues("callback").Inc()
		if err := s.engine.ProcessCallback(ctx, u.Callback); err != nil {
			s.logger.Error("callback processing failed", "err", err, "actor", u.Callback.FromID)
		}
	case u.Message != nil:
		updatesReceived.WithLabelValues("message").Inc()
		s.handleMessage(ctx, u.Message)
	default:
		updatesReceived.WithLabelValues("other").Inc()
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *transport.Message) {
	if cmd, ok := parseCommand(msg.Text); ok {
		s.handleCommand(ctx, msg, cmd)
		return
	}

	switch {
	case msg.Private:
		if err := s.engine.ProcessPrivateMessage(ctx, msg); err != nil {
			s.logger.Error("private message processing failed", "err", err, "actor", msg.FromID)
		}
	case msg.ChatID == s.engine.ReviewDest.ChatID:
		if err := s.engine.ProcessReviewMessage(ctx, msg); err != nil {
			s.logger.Error("review message processing failed", "err", err, "actor", msg.FromID)
		}
	default:
		// some other chat the bot happens to be in; nothing to do
	}
}

// parseCommand extracts a leading slash command, tolerating the @BotName
// suffix group chats append.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd, true
}

const welcomeText = "Hi! Send me a photo or a video and it will go to the moderators for review. You will get a message back once they decide."

const helpText = "Send a photo or a video as a private message to submit it. " +
	"Add a caption if you want one published with it. " +
	"Commands: /start, /help, /cancel (abandon a pending input), /admin (admins only)."

func (s *Server) handleCommand(ctx context.Context, msg *transport.Message, cmd string) {
	dest := transport.Destination{ChatID: msg.ChatID}

	switch cmd {
	case "/start":
		s.reply(ctx, dest, welcomeText)
	case "/help":
		s.reply(ctx, dest, helpText)
	case "/cancel":
		if err := s.engine.Dialogs.Cancel(ctx, msg.FromID); err != nil {
			s.logger.Error("cancelling dialog failed", "err", err, "actor", msg.FromID)
			return
		}
		s.reply(ctx, dest, "input cancelled")
	case "/admin":
		err := s.engine.SendAdminPanel(ctx, msg.FromID, dest)
		if errors.Is(err, engine.ErrForbidden) {
			s.reply(ctx, dest, "you are not an admin")
		} else if err != nil {
			s.logger.Error("sending admin panel failed", "err", err, "actor", msg.FromID)
		}
	default:
		s.reply(ctx, dest, "unknown command, try /help")
	}
}

func (s *Server) reply(ctx context.Context, dest transport.Destination, text string) {
	if _, err := s.bot.SendText(ctx, dest, text, nil); err != nil {
		s.logger.Warn("sending command reply failed", "err", err, "chat", dest.ChatID)
	}
}
