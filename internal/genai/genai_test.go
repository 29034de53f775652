package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	return m.resp, m.err
}

func reply(content string) openai.ChatCompletion {
	return openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}}}
}

func coachMessages() []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("coach"),
		openai.UserMessage("hi"),
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GenerateWithMessages(context.Background(), coachMessages())
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.GenerateWithMessages(context.Background(), coachMessages())
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestClassify_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("rate limited")}}
	if _, err := client.Classify(context.Background(), "Classify.", "ugh", []string{"GENERAL"}); err == nil {
		t.Error("expected error from failing chat service")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	_, err := NewClient()
	if err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClient_WithKey(t *testing.T) {
	key := "test-key"
	cli, err := NewClient(WithAPIKey(key))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}

func TestGenerateWithMessages(t *testing.T) {
	mock := &mockChatService{resp: reply("  Lock it in.  ")}
	client := &Client{chat: mock, model: "test-model", temperature: 0.7, maxTokens: 100}
	out, err := client.GenerateWithMessages(context.Background(), coachMessages())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Lock it in." {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if len(mock.params.Messages) != 2 || string(mock.params.Model) != "test-model" {
		t.Errorf("unexpected params: %d messages, model %q", len(mock.params.Messages), mock.params.Model)
	}
}

func TestClassify(t *testing.T) {
	labels := []string{"LOG_SCORE", "BAD_DAY", "GENERAL"}
	tests := []struct {
		reply   string
		want    string
		wantErr error
	}{
		{"BAD_DAY", "BAD_DAY", nil},
		{" general. ", "GENERAL", nil},
		{"Label: LOG_SCORE", "LOG_SCORE", nil},
		{"no idea", "", ErrUnrecognizedLabel},
	}
	for _, tt := range tests {
		client := &Client{chat: &mockChatService{resp: reply(tt.reply)}, model: "test-model"}
		got, err := client.Classify(context.Background(), "Classify the message.", "ugh today", labels)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Classify(%q) error = %v, want %v", tt.reply, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Classify(%q) = %q, %v; want %q", tt.reply, got, err, tt.want)
		}
	}
}

func TestMatchLabelPrefersExact(t *testing.T) {
	got, ok := MatchLabel("LOCK_TOMORROW", []string{"LOCK", "LOCK_TOMORROW"})
	if !ok || got != "LOCK_TOMORROW" {
		t.Errorf("expected exact label, got %q", got)
	}
}
