package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BTreeMap/LockIn/internal/models"
	"github.com/BTreeMap/LockIn/internal/store"
)

// DefaultErrorMessage is sent to the user when processing their message fails.
const DefaultErrorMessage = "⚠️ We encountered an issue processing your message. Please try again in a minute."

// Handler processes one inbound message, sending any replies itself.
type Handler interface {
	HandleResponse(ctx context.Context, in models.Response) error
}

// ResponseHandler consumes a Service's Responses channel and hands each message
// to a Handler. Messages from the same user are handled one at a time in arrival
// order, and messages whose transport id was already seen are dropped.
type ResponseHandler struct {
	handler      Handler
	msgService   Service
	dedup        store.DedupRepo
	errorMessage string

	mu     sync.Mutex
	queues map[string][]models.Response // pending messages per user; present while a worker runs
	wg     sync.WaitGroup
}

// ResponseHandlerOption configures a ResponseHandler.
type ResponseHandlerOption func(*ResponseHandler)

// WithDedup enables inbound dedup by transport message id.
func WithDedup(d store.DedupRepo) ResponseHandlerOption {
	return func(rh *ResponseHandler) { rh.dedup = d }
}

// WithErrorMessage overrides the generic failure reply.
func WithErrorMessage(msg string) ResponseHandlerOption {
	return func(rh *ResponseHandler) { rh.errorMessage = msg }
}

// NewResponseHandler creates a ResponseHandler that reads from msgService and dispatches to handler.
func NewResponseHandler(msgService Service, handler Handler, opts ...ResponseHandlerOption) *ResponseHandler {
	rh := &ResponseHandler{
		handler:      handler,
		msgService:   msgService,
		errorMessage: DefaultErrorMessage,
		queues:       make(map[string][]models.Response),
	}
	for _, opt := range opts {
		opt(rh)
	}
	return rh
}

// enqueue appends r to its sender's queue, starting a worker when the sender has none.
func (rh *ResponseHandler) enqueue(ctx context.Context, r models.Response) {
	key := r.From
	if canonical, err := rh.msgService.ValidateAndCanonicalizeRecipient(r.From); err == nil {
		key = canonical
	}
	rh.mu.Lock()
	pending, running := rh.queues[key]
	rh.queues[key] = append(pending, r)
	rh.mu.Unlock()
	if running {
		return
	}
	rh.wg.Add(1)
	go rh.drain(ctx, key)
}

// drain handles key's queued messages in order and exits once the queue is empty.
func (rh *ResponseHandler) drain(ctx context.Context, key string) {
	defer rh.wg.Done()
	for {
		rh.mu.Lock()
		pending := rh.queues[key]
		if len(pending) == 0 {
			delete(rh.queues, key)
			rh.mu.Unlock()
			return
		}
		next := pending[0]
		rh.queues[key] = pending[1:]
		rh.mu.Unlock()

		if err := rh.ProcessResponse(ctx, next); err != nil {
			slog.Error("ResponseHandler failed to process response", "error", err, "from", next.From)
		}
	}
}

// ProcessResponse validates, dedups and handles one inbound message. Handler
// errors are answered with the generic failure message and returned. It does
// not serialize callers; Start feeds it one message per user at a time.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	from, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler.ProcessResponse: invalid sender", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	response.From = from

	if rh.dedup != nil && response.MessageID != "" {
		fresh, err := rh.dedup.RecordInbound(response.MessageID, from)
		if err != nil {
			return fmt.Errorf("failed to record inbound message: %w", err)
		}
		if !fresh {
			slog.Info("ResponseHandler.ProcessResponse: duplicate message dropped", "from", from, "message_id", response.MessageID)
			return nil
		}
	}

	slog.Debug("ResponseHandler.ProcessResponse: handling", "from", from, "body_length", len(response.Body), "media", response.HasMedia())
	if err := rh.handler.HandleResponse(ctx, response); err != nil {
		slog.Error("ResponseHandler.ProcessResponse: handler failed", "error", err, "from", from)
		if sendErr := rh.msgService.SendMessage(ctx, from, rh.errorMessage); sendErr != nil {
			slog.Error("ResponseHandler.ProcessResponse: failed to send error message", "error", sendErr, "from", from)
		}
		return fmt.Errorf("handler failed: %w", err)
	}

	if rh.dedup != nil && response.MessageID != "" {
		if err := rh.dedup.MarkProcessed(response.MessageID); err != nil {
			slog.Warn("ResponseHandler.ProcessResponse: failed to mark processed", "error", err, "message_id", response.MessageID)
		}
	}
	return nil
}

// Start begins processing responses from the messaging service. Each user gets
// a FIFO queue drained by a single worker, so different users run concurrently
// while one user's messages keep their arrival order.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing")

	go func() {
		defer slog.Info("ResponseHandler stopped response processing")
		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}
				rh.enqueue(ctx, response)
			case <-ctx.Done():
				slog.Debug("ResponseHandler stopping due to context cancellation")
				return
			}
		}
	}()
}

// Wait blocks until every queued message has been processed.
func (rh *ResponseHandler) Wait() {
	rh.wg.Wait()
}
