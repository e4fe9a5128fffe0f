// Package transport is the boundary to the chat platform. The gateway core
// only depends on the Client and Poller interfaces; the Telegram Bot API
// implementation here is a thin HTTP wrapper with no business logic.
package transport

import (
	"context"
)

// Destination addresses a chat, optionally inside a forum thread.
type Destination struct {
	ChatID   int64
	ThreadID int64
}

// MessageRef identifies one delivered message, sufficient to edit or delete
// it later.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// Button is one inline action affordance carrying an opaque callback token.
type Button struct {
	Label string
	Token string
}

// Client covers every outbound operation the gateway performs.
type Client interface {
	// SendMedia re-sends previously uploaded content by its platform file
	// reference, with a caption and optional action buttons.
	SendMedia(ctx context.Context, dest Destination, kind string, fileRef, caption string, buttons []Button) (MessageRef, error)
	SendText(ctx context.Context, dest Destination, text string, buttons []Button) (MessageRef, error)
	EditButtons(ctx context.Context, ref MessageRef, buttons []Button) error
	EditCaption(ctx context.Context, ref MessageRef, caption string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	// AnswerCallback acknowledges a button press, optionally with an alert.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Poller is the inbound event stream.
type Poller interface {
	// GetUpdates long-polls for events after the given offset.
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
}

// Update is one inbound event: either a message or a button callback.
type Update struct {
	ID       int64
	Message  *Message
	Callback *Callback
}

// MediaFile is an attachment reference with its declared size, when known.
type MediaFile struct {
	FileRef   string
	SizeBytes int64
}

// Message is an inbound chat message, reduced to what the gateway needs.
type Message struct {
	ID         int64
	ChatID     int64
	ThreadID   int64
	Private    bool
	FromID     int64
	FromHandle string
	Text       string
	Caption    string

	// at most one of these is set
	Photo     *MediaFile
	Video     *MediaFile
	Animation *MediaFile
	Document  *MediaFile
	Audio     *MediaFile
	Voice     *MediaFile
	Sticker   *MediaFile
}

// Callback is a button press on a previously sent message.
type Callback struct {
	ID         string
	FromID     int64
	FromHandle string
	Token      string
	Message    MessageRef
}
