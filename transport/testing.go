package transport

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client for tests. It records every outbound
// call and can be told to fail specific operations.
type MockClient struct {
	mu     sync.Mutex
	nextID int64

	Sent      []MockSend
	Edits     []MockEdit
	Deleted   []MessageRef
	Answers   []MockAnswer
	FailSends bool
	FailEdits bool
}

type MockSend struct {
	Dest    Destination
	Kind    string // empty for text
	FileRef string
	Text    string
	Buttons []Button
	Ref     MessageRef
}

type MockEdit struct {
	Ref       MessageRef
	Caption   string
	Buttons   []Button
	IsCaption bool
}

type MockAnswer struct {
	CallbackID string
	Text       string
	Alert      bool
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMedia(ctx context.Context, dest Destination, kind string, fileRef, caption string, buttons []Button) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSends {
		return MessageRef{}, fmt.Errorf("mock transport: send failed")
	}
	m.nextID++
	ref := MessageRef{ChatID: dest.ChatID, MessageID: m.nextID}
	m.Sent = append(m.Sent, MockSend{Dest: dest, Kind: kind, FileRef: fileRef, Text: caption, Buttons: buttons, Ref: ref})
	return ref, nil
}

func (m *MockClient) SendText(ctx context.Context, dest Destination, text string, buttons []Button) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSends {
		return MessageRef{}, fmt.Errorf("mock transport: send failed")
	}
	m.nextID++
	ref := MessageRef{ChatID: dest.ChatID, MessageID: m.nextID}
	m.Sent = append(m.Sent, MockSend{Dest: dest, Text: text, Buttons: buttons, Ref: ref})
	return ref, nil
}

func (m *MockClient) EditButtons(ctx context.Context, ref MessageRef, buttons []Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEdits {
		return fmt.Errorf("mock transport: edit failed")
	}
	m.Edits = append(m.Edits, MockEdit{Ref: ref, Buttons: buttons})
	return nil
}

func (m *MockClient) EditCaption(ctx context.Context, ref MessageRef, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEdits {
		return fmt.Errorf("mock transport: edit failed")
	}
	m.Edits = append(m.Edits, MockEdit{Ref: ref, Caption: caption, IsCaption: true})
	return nil
}

func (m *MockClient) DeleteMessage(ctx context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, ref)
	return nil
}

func (m *MockClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Answers = append(m.Answers, MockAnswer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

// TextsTo returns every plain text sent to the given chat.
func (m *MockClient) TextsTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.Kind == "" && s.Dest.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

// MediaTo returns every media send to the given chat.
func (m *MockClient) MediaTo(chatID int64) []MockSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockSend
	for _, s := range m.Sent {
		if s.Kind != "" && s.Dest.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}
