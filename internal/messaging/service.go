// Package messaging delivers coach messages over a pluggable transport and
// feeds inbound user messages to the conversation handler.
package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BTreeMap/LockIn/internal/models"
)

// ErrServiceStopped is returned when sending on a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// Service defines a pluggable message delivery abstraction.
// It supports sending text and media, and provides channels for receipt and response events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	// Returns the canonicalized recipient and an error if validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// SendMedia sends a message with one attached media URL.
	SendMedia(ctx context.Context, to, body, mediaURL string) error

	// Start begins any background processing (e.g., polling for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Responses returns a channel of incoming user messages.
	Responses() <-chan models.Response
}

// LogReceipts drains s's receipt channel until it closes or ctx ends, logging
// each delivery event. Run it in its own goroutine.
func LogReceipts(ctx context.Context, s Service) {
	for {
		select {
		case r, ok := <-s.Receipts():
			if !ok {
				return
			}
			slog.Debug("Messaging receipt", "to", r.To, "status", r.Status, "time", r.Time)
		case <-ctx.Done():
			return
		}
	}
}
