package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const defaultAPIBase = "https://api.telegram.org"

// longPollSeconds is the getUpdates timeout; the HTTP client timeout must
// stay above it.
const longPollSeconds = 30

// TelegramClient implements Client and Poller against the Bot API. Content is
// always re-sent by file id, never re-uploaded.
type TelegramClient struct {
	logger  *slog.Logger
	base    string
	token   string
	http    *http.Client
	poll    *http.Client
	limiter *rate.Limiter
}

func NewTelegramClient(logger *slog.Logger, token string, sendRateLimit int) *TelegramClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telegram")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{logger})
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second

	// long-poll connection, no retries, generous timeout
	poll := &http.Client{Timeout: (longPollSeconds + 10) * time.Second}

	return &TelegramClient{
		logger:  logger,
		base:    defaultAPIBase,
		token:   token,
		http:    client,
		poll:    poll,
		limiter: rate.NewLimiter(rate.Limit(sendRateLimit), 1),
	}
}

// re-writes HTTP client ERROR to WARN level (because of retries)
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *TelegramClient) call(ctx context.Context, client *http.Client, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("bot api %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("bot api %s: decoding response: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("bot api %s: %s (code %d)", method, env.Description, env.ErrorCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("bot api %s: decoding result: %w", method, err)
		}
	}
	return nil
}

func (c *TelegramClient) send(ctx context.Context, method string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.call(ctx, c.http, method, payload, out)
}

// two buttons per keyboard row
func inlineKeyboard(buttons []Button) map[string]any {
	if len(buttons) == 0 {
		return nil
	}
	var rows [][]map[string]string
	for i := 0; i < len(buttons); i += 2 {
		row := []map[string]string{{"text": buttons[i].Label, "callback_data": buttons[i].Token}}
		if i+1 < len(buttons) {
			row = append(row, map[string]string{"text": buttons[i+1].Label, "callback_data": buttons[i+1].Token})
		}
		rows = append(rows, row)
	}
	return map[string]any{"inline_keyboard": rows}
}

func (c *TelegramClient) SendMedia(ctx context.Context, dest Destination, kind string, fileRef, caption string, buttons []Button) (MessageRef, error) {
	var method, field string
	switch kind {
	case "photo":
		method, field = "sendPhoto", "photo"
	case "video":
		method, field = "sendVideo", "video"
	default:
		return MessageRef{}, fmt.Errorf("unsupported media kind: %s", kind)
	}
	payload := map[string]any{
		"chat_id": dest.ChatID,
		field:     fileRef,
	}
	if dest.ThreadID != 0 {
		payload["message_thread_id"] = dest.ThreadID
	}
	if caption != "" {
		payload["caption"] = caption
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg apiMessage
	if err := c.send(ctx, method, payload, &msg); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: dest.ChatID, MessageID: msg.MessageID}, nil
}

func (c *TelegramClient) SendText(ctx context.Context, dest Destination, text string, buttons []Button) (MessageRef, error) {
	payload := map[string]any{
		"chat_id": dest.ChatID,
		"text":    text,
	}
	if dest.ThreadID != 0 {
		payload["message_thread_id"] = dest.ThreadID
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	var msg apiMessage
	if err := c.send(ctx, "sendMessage", payload, &msg); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: dest.ChatID, MessageID: msg.MessageID}, nil
}

func (c *TelegramClient) EditButtons(ctx context.Context, ref MessageRef, buttons []Button) error {
	payload := map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
	}
	if kb := inlineKeyboard(buttons); kb != nil {
		payload["reply_markup"] = kb
	}
	return c.send(ctx, "editMessageReplyMarkup", payload, nil)
}

func (c *TelegramClient) EditCaption(ctx context.Context, ref MessageRef, caption string) error {
	return c.send(ctx, "editMessageCaption", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"caption":    caption,
	}, nil)
}

func (c *TelegramClient) DeleteMessage(ctx context.Context, ref MessageRef) error {
	return c.send(ctx, "deleteMessage", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
	}, nil)
}

func (c *TelegramClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return c.send(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        alert,
	}, nil)
}

func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var raw []apiUpdate
	err := c.call(ctx, c.poll, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         longPollSeconds,
		"allowed_updates": []string{"message", "callback_query"},
	}, &raw)
	if err != nil {
		return nil, err
	}
	out := make([]Update, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.convert())
	}
	return out, nil
}

// wire types, reduced to the fields the gateway consumes

type apiUpdate struct {
	UpdateID      int64        `json:"update_id"`
	Message       *apiMessage  `json:"message"`
	CallbackQuery *apiCallback `json:"callback_query"`
}

type apiMessage struct {
	MessageID       int64          `json:"message_id"`
	MessageThreadID int64          `json:"message_thread_id"`
	From            *apiUser       `json:"from"`
	Chat            apiChat        `json:"chat"`
	Text            string         `json:"text"`
	Caption         string         `json:"caption"`
	Photo           []apiMediaFile `json:"photo"`
	Video           *apiMediaFile  `json:"video"`
	Animation       *apiMediaFile  `json:"animation"`
	Document        *apiMediaFile  `json:"document"`
	Audio           *apiMediaFile  `json:"audio"`
	Voice           *apiMediaFile  `json:"voice"`
	Sticker         *apiMediaFile  `json:"sticker"`
}

type apiCallback struct {
	ID      string      `json:"id"`
	From    apiUser     `json:"from"`
	Data    string      `json:"data"`
	Message *apiMessage `json:"message"`
}

type apiUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type apiChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type apiMediaFile struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

func (f *apiMediaFile) convert() *MediaFile {
	if f == nil {
		return nil
	}
	return &MediaFile{FileRef: f.FileID, SizeBytes: f.FileSize}
}

func (u apiUpdate) convert() Update {
	out := Update{ID: u.UpdateID}
	if u.Message != nil {
		m := u.Message
		msg := &Message{
			ID:        m.MessageID,
			ChatID:    m.Chat.ID,
			ThreadID:  m.MessageThreadID,
			Private:   m.Chat.Type == "private",
			Text:      m.Text,
			Caption:   m.Caption,
			Video:     m.Video.convert(),
			Animation: m.Animation.convert(),
			Document:  m.Document.convert(),
			Audio:     m.Audio.convert(),
			Voice:     m.Voice.convert(),
			Sticker:   m.Sticker.convert(),
		}
		if m.From != nil {
			msg.FromID = m.From.ID
			msg.FromHandle = m.From.Username
		}
		// photos arrive as a size ladder; the last entry is the largest
		if len(m.Photo) > 0 {
			msg.Photo = m.Photo[len(m.Photo)-1].convert()
		}
		out.Message = msg
	}
	if u.CallbackQuery != nil {
		cb := &Callback{
			ID:         u.CallbackQuery.ID,
			FromID:     u.CallbackQuery.From.ID,
			FromHandle: u.CallbackQuery.From.Username,
			Token:      u.CallbackQuery.Data,
		}
		if u.CallbackQuery.Message != nil {
			cb.Message = MessageRef{
				ChatID:    u.CallbackQuery.Message.Chat.ID,
				MessageID: u.CallbackQuery.Message.MessageID,
			}
		}
		out.Callback = cb
	}
	return out
}
