package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryConsumer is an in-process Consumer for tests and local runs.
// Published messages are delivered to the handler in a goroutine each,
// like the AMQP consumer; Nack(requeue=true) redelivers, while
// Nack(requeue=false) moves the message to an inspectable dead-letter
// slice.
type MemoryConsumer struct {
	mu         sync.Mutex
	handler    Handler
	ctx        context.Context
	started    chan struct{}
	closed     bool
	acked      []string
	deadLetter []string
	wg         sync.WaitGroup
}

func NewMemoryConsumer() *MemoryConsumer {
	return &MemoryConsumer{started: make(chan struct{})}
}

func (c *MemoryConsumer) Start(ctx context.Context, h Handler) error {
	c.mu.Lock()
	c.handler = h
	c.ctx = ctx
	close(c.started)
	c.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

// Publish injects a message. The message ID is generated when empty, as
// a broker would.
func (c *MemoryConsumer) Publish(id string, body []byte) string {
	if id == "" {
		id = uuid.New().String()
	}
	<-c.started

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return id
	}
	h := c.handler
	ctx := c.ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		h(ctx, c.wrap(id, body))
	}()
	return id
}

func (c *MemoryConsumer) wrap(id string, body []byte) *Delivery {
	return NewDelivery(id, body,
		func() error {
			c.mu.Lock()
			c.acked = append(c.acked, id)
			c.mu.Unlock()
			return nil
		},
		func(requeue bool) error {
			if requeue {
				c.redeliver(id, body)
				return nil
			}
			c.mu.Lock()
			c.deadLetter = append(c.deadLetter, id)
			c.mu.Unlock()
			return nil
		},
	)
}

func (c *MemoryConsumer) redeliver(id string, body []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	h := c.handler
	ctx := c.ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		h(ctx, c.wrap(id, body))
	}()
}

// Acked returns the IDs of acknowledged messages.
func (c *MemoryConsumer) Acked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.acked))
	copy(out, c.acked)
	return out
}

// DeadLettered returns the IDs of dead-lettered messages.
func (c *MemoryConsumer) DeadLettered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.deadLetter))
	copy(out, c.deadLetter)
	return out
}

// Wait blocks until all in-flight handler invocations return.
func (c *MemoryConsumer) Wait() {
	c.wg.Wait()
}

func (c *MemoryConsumer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
