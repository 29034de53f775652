package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/twiliowhatsapp"
	twilioClient "github.com/twilio/twilio-go/client"
)

// EmptyTwiML is the acknowledgment returned for every inbound webhook.
const EmptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// CanonicalPhone strips everything but digits and returns the number in "+digits" form.
func CanonicalPhone(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	digits := phoneNumberRegex.ReplaceAllString(recipient, "")
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(digits) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", digits)
	}
	return "+" + digits, nil
}

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioService)

// WithWebhookValidation enables X-Twilio-Signature checks for webhooks received at publicURL.
func WithWebhookValidation(authToken, publicURL string) TwilioOption {
	return func(s *TwilioService) {
		v := twilioClient.NewRequestValidator(authToken)
		s.validator = &v
		s.webhookURL = publicURL
	}
}

// TwilioService implements the Service interface using Twilio API
type TwilioService struct {
	client     twiliowhatsapp.TwilioWhatsAppSender // real Twilio client or MockClient
	validator  *twilioClient.RequestValidator
	webhookURL string
	receipts   chan models.Receipt
	responses  chan models.Response
	mu         sync.RWMutex
	stopped    bool
}

// NewTwilioService creates a new TwilioService around client.
func NewTwilioService(client twiliowhatsapp.TwilioWhatsAppSender, opts ...TwilioOption) *TwilioService {
	s := &TwilioService{
		client:    client,
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAndCanonicalizeRecipient validates a WhatsApp phone number and returns it as "+digits".
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := CanonicalPhone(twiliowhatsapp.StripAddress(recipient))
	if err != nil {
		return "", err
	}
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Start is a no-op for Twilio; inbound messages arrive through the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the channels. Emitters hold the read lock, so no send can race the close.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.receipts)
	close(s.responses)
	slog.Info("TwilioService stopped and channels closed")
	return nil
}

func (s *TwilioService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// SendMessage sends a message via Twilio and emits a receipt
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	if err := models.ValidateOutbound(canonicalTo, body); err != nil {
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// SendMedia sends a message with an attached media URL and emits a receipt.
func (s *TwilioService) SendMedia(ctx context.Context, to, body, mediaURL string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMedia validation error", "error", err, "to", to)
		return err
	}
	if mediaURL == "" {
		return s.SendMessage(ctx, canonicalTo, body)
	}
	if err := s.client.SendMedia(ctx, canonicalTo, body, mediaURL); err != nil {
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.MessageStatusSent, Time: time.Now().Unix()})
	return nil
}

// Receipts returns the channel for sent message receipts
func (s *TwilioService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Responses returns the channel of inbound messages parsed by the webhook.
func (s *TwilioService) Responses() <-chan models.Response {
	return s.responses
}

// safeEmitReceipt never blocks a send: receipts are dropped when nobody keeps up.
func (s *TwilioService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}
	select {
	case s.receipts <- receipt:
	default:
		slog.Debug("TwilioService receipts channel full, dropping receipt", "to", receipt.To)
	}
}

// ParseWebhook extracts an inbound message from Twilio's form fields.
// The second return value is false when the request carries nothing to process.
func ParseWebhook(r *http.Request) (models.Response, bool) {
	from := twiliowhatsapp.StripAddress(r.FormValue("From"))
	resp := models.Response{
		MessageID: r.FormValue("MessageSid"),
		From:      from,
		Body:      r.FormValue("Body"),
		Time:      time.Now().Unix(),
	}
	if n, _ := strconv.Atoi(r.FormValue("NumMedia")); n > 0 {
		resp.MediaURL = r.FormValue("MediaUrl0")
	}
	if from == "" || (resp.Body == "" && resp.MediaURL == "") {
		return resp, false
	}
	return resp, true
}

// TwilioWebhookHandler handles inbound Twilio webhook requests.
// It emits parsed messages into the Responses() channel and always answers with empty TwiML;
// processing problems are logged, never surfaced to Twilio.
func (s *TwilioService) TwilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, EmptyTwiML)
	}()

	if err := r.ParseForm(); err != nil {
		slog.Error("TwilioService webhook: failed to parse form", "error", err)
		return
	}
	if s.validator != nil && !s.validSignature(r) {
		slog.Warn("TwilioService webhook: invalid signature, dropping request")
		return
	}
	resp, ok := ParseWebhook(r)
	if !ok {
		slog.Warn("TwilioService webhook: missing fields", "from", resp.From, "has_body", resp.Body != "")
		return
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("TwilioService webhook: invalid sender", "error", err, "from", resp.From)
		return
	}
	resp.From = canonical
	slog.Info("TwilioService webhook: inbound message", "from", resp.From, "message_id", resp.MessageID, "media", resp.HasMedia())
	s.safeEmitResponse(resp)
}

func (s *TwilioService) validSignature(r *http.Request) bool {
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return s.validator.Validate(s.webhookURL, params, r.Header.Get("X-Twilio-Signature"))
}

// safeEmitResponse pushes a response into the responses channel without blocking forever.
func (s *TwilioService) safeEmitResponse(response models.Response) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn("TwilioService dropping inbound response (service stopped)", "from", response.From)
		return
	}
	select {
	case s.responses <- response:
		slog.Debug("TwilioService emitted inbound response", "from", response.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", response.From)
	}
}
