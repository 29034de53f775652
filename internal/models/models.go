// Package models defines the core data structures for LockIn.
//
// It includes the coaching domain (users, contracts, daily logs, tokens, patterns)
// as well as the transport envelopes and API response types shared across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageBodyLength defines the maximum allowed length for an outbound message body
	MaxMessageBodyLength = 4096
	// MaxActionNameLength defines the maximum allowed length for a binary action name
	MaxActionNameLength = 64
	// MaxActionsPerContract defines the maximum number of binary actions in a contract
	MaxActionsPerContract = 12
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient      = errors.New("recipient cannot be empty")
	ErrEmptyBody           = errors.New("message body cannot be empty")
	ErrBodyTooLong         = errors.New("message body exceeds maximum length")
	ErrEmptyGoal           = errors.New("contract goal cannot be empty")
	ErrNoActions           = errors.New("contract must have at least one binary action")
	ErrTooManyActions      = errors.New("contract has too many binary actions")
	ErrDuplicateAction     = errors.New("binary action names must be unique within a contract")
	ErrInvalidActionPoints = errors.New("binary action points must be positive")
	ErrEmptyActionName     = errors.New("binary action name cannot be empty")
)

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// Receipt records a delivery event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming message from a user.
type Response struct {
	MessageID string `json:"message_id,omitempty"` // transport message id, used for dedup
	From      string `json:"from"`
	Body      string `json:"body"`
	MediaURL  string `json:"media_url,omitempty"` // optional media reference (photo)
	Time      int64  `json:"time"`
}

// HasMedia reports whether the inbound message carries a media reference.
func (r Response) HasMedia() bool {
	return r.MediaURL != ""
}

// ValidateOutbound checks an outbound message before it is handed to a transport.
func ValidateOutbound(to, body string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	if body == "" {
		return ErrEmptyBody
	}
	if len(body) > MaxMessageBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build returns the constructed APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// ScheduleEntry describes one registered recurring job, exposed by the API.
type ScheduleEntry struct {
	UserID  string    `json:"user_id"`
	Kind    string    `json:"kind"`
	Clock   string    `json:"clock"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"next_run"`
}
