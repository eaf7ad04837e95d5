// Package remote delivers queued mutations to the system of record.
//
// The offline manager only knows the Sender interface. Two implementations
// are provided: HTTP replays the mutation against the LMS REST API and Kafka
// publishes it to a topic consumed by the backend.
package remote

import (
	"context"
	"encoding/json"
)

// Attachment is a binary part sent along with a mutation, e.g. an assignment
// file. Data is base64 encoded when the owning operation is persisted.
type Attachment struct {
	// Field is the form field name
	// default: "files"
	Field       string `json:"field,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

// Request is one mutation to apply remotely
type Request struct {
	// ID identifies the queued operation across delivery attempts; receivers
	// use it to drop duplicates
	ID string
	// Endpoint is the resource path, e.g. "/lessons/l1/progress"
	Endpoint string
	// Method is the HTTP verb / intent, e.g. "PUT"
	Method string
	// Payload is the JSON document to send; may be empty
	Payload json.RawMessage
	// Attachments switches HTTP delivery to multipart/form-data
	Attachments []Attachment
}

// Sender applies a mutation remotely.
// A nil error means the remote side accepted it.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// SenderFunc adapts a plain function to Sender
type SenderFunc func(ctx context.Context, req Request) error

// Send calls f(ctx, req)
func (f SenderFunc) Send(ctx context.Context, req Request) error {
	return f(ctx, req)
}
