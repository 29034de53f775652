package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/whatsapp"
)

// Ensure WhatsAppService implements Service interface
func TestWhatsAppService_ImplementsService(t *testing.T) {
	var _ Service = (*WhatsAppService)(nil)
}

func TestWhatsAppService_SendMessage_Receipt(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient, t.TempDir())
	if err := svc.SendMessage(context.Background(), "15550001111", "hello"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "+15550001111" {
			t.Errorf("expected canonical receipt.To, got %s", receipt.To)
		}
		if receipt.Status != models.MessageStatusSent {
			t.Errorf("expected receipt.Status %s, got %s", models.MessageStatusSent, receipt.Status)
		}
	default:
		t.Fatal("expected receipt, got none")
	}
}

func TestWhatsAppService_SendMedia(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient, t.TempDir())
	if err := svc.SendMedia(context.Background(), "+15550001111", "Day 1.", "file:///tmp/a.jpg"); err != nil {
		t.Fatalf("SendMedia: %v", err)
	}
	if len(mockClient.Sent) != 1 || mockClient.Sent[0] != "Day 1. file:///tmp/a.jpg" {
		t.Errorf("unexpected sent %v", mockClient.Sent)
	}
}

// Start and Stop do not error and close channels
func TestWhatsAppService_StartStop(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient(), t.TempDir())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if receipt, ok := <-svc.Receipts(); ok {
		t.Errorf("expected receipts channel closed, got value %v", receipt)
	}
	if response, ok := <-svc.Responses(); ok {
		t.Errorf("expected responses channel closed, got value %v", response)
	}
	// Sends after Stop must not panic on the closed receipts channel.
	_ = svc.SendMessage(context.Background(), "+15550001111", "late")
}

func TestWhatsAppService_SendsDoNotWaitOnUnreadReceipts(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient(), t.TempDir())
	start := time.Now()
	for i := 0; i < DefaultChannelBufferSize+10; i++ {
		if err := svc.SendMessage(context.Background(), "+15550001111", "reminder"); err != nil {
			t.Fatalf("SendMessage %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed >= DefaultChannelTimeout {
		t.Errorf("sends blocked on a full receipts channel: took %v", elapsed)
	}
}
