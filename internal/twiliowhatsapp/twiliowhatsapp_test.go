package twiliowhatsapp

import (
	"context"
	"errors"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "+12345678", "Hello Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}

	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}
}

func TestMockClient_SendMedia(t *testing.T) {
	mock := NewMockClient()
	if err := mock.SendMedia(context.Background(), "+12345678", "baseline", "https://example.com/a.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := mock.Sent()
	if len(sent) != 1 || sent[0].MediaURL != "https://example.com/a.jpg" {
		t.Errorf("unexpected sent messages %+v", sent)
	}
}

func TestMockClient_Err(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("boom")
	if err := mock.SendMessage(context.Background(), "+1", "x"); err == nil {
		t.Error("expected error")
	}
	if len(mock.Sent()) != 0 {
		t.Error("failed sends should not be recorded")
	}
}

func TestAddress(t *testing.T) {
	if got := Address("+15550001111"); got != "whatsapp:+15550001111" {
		t.Errorf("Address = %q", got)
	}
	if got := Address("whatsapp:+15550001111"); got != "whatsapp:+15550001111" {
		t.Errorf("Address should not double prefix, got %q", got)
	}
	if got := StripAddress("whatsapp:+15550001111"); got != "+15550001111" {
		t.Errorf("StripAddress = %q", got)
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC1"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
	c, err := NewClient(WithAccountSID("AC1"), WithAuthToken("tok"), WithFromWhats("+15550009999"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+15550009999" {
		t.Errorf("fromWhats = %q", c.fromWhats)
	}
}
