package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Event is the payload of one "file uploaded" notification. Producers
// disagree on field names, so all known aliases are accepted.
type Event struct {
	Name       string `json:"name,omitempty"`
	Object     string `json:"object,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	BucketName string `json:"bucketName,omitempty"`
}

// File returns the file name, whichever alias carried it.
func (e *Event) File() string {
	switch {
	case e.Name != "":
		return e.Name
	case e.Object != "":
		return e.Object
	default:
		return e.FileName
	}
}

// BucketOr returns the bucket name, falling back to def when the event
// omits it.
func (e *Event) BucketOr(def string) string {
	switch {
	case e.Bucket != "":
		return e.Bucket
	case e.BucketName != "":
		return e.BucketName
	default:
		return def
	}
}

// AudioURI builds the object URI for the event.
func (e *Event) AudioURI(defaultBucket string) string {
	return fmt.Sprintf("gs://%s/%s", e.BucketOr(defaultBucket), e.File())
}

// ParseEvent decodes an event payload and validates that it names a file.
func ParseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if evt.File() == "" {
		return nil, errors.New("invalid event payload: file name missing")
	}
	return &evt, nil
}

// Delivery is one message handed to the worker. Exactly one of Ack or
// Nack must be called per delivery.
type Delivery struct {
	// ID is stable across redeliveries of the same message and keys the
	// message-level attempt tracker.
	ID   string
	Body []byte

	ackFn  func() error
	nackFn func(requeue bool) error
}

// NewDelivery wraps a payload with its acknowledgment callbacks.
func NewDelivery(id string, body []byte, ack func() error, nack func(requeue bool) error) *Delivery {
	return &Delivery{ID: id, Body: body, ackFn: ack, nackFn: nack}
}

// Ack confirms the message, removing it from the queue.
func (d *Delivery) Ack() error {
	return d.ackFn()
}

// Nack rejects the message. With requeue the queue redelivers it; without,
// the queue's dead-letter policy takes over.
func (d *Delivery) Nack(requeue bool) error {
	return d.nackFn(requeue)
}

// Handler processes one delivery. It must absorb all failures into an
// ack/nack decision and never panic outward.
type Handler func(ctx context.Context, d *Delivery)

// Consumer is a push-delivery message source.
type Consumer interface {
	// Start begins delivering messages to h, potentially concurrently,
	// and blocks until the context is cancelled or the source closes.
	Start(ctx context.Context, h Handler) error
	Close() error
}
