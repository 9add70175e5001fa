package stream

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

var (
	// ErrTerminated is returned by Emit after a done or failed fragment.
	ErrTerminated = eris.New("stream: already terminated")
	// ErrClosed is returned by Emit after the consumer went away.
	ErrClosed = eris.New("stream: consumer closed")
)

// DefaultBuffer is the number of fragments an Emitter holds before Emit blocks.
const DefaultBuffer = 16

// Sink receives fragments in order.
type Sink interface {
	Emit(ctx context.Context, f Fragment) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Fragment) error

func (fn SinkFunc) Emit(ctx context.Context, f Fragment) error { return fn(ctx, f) }

// Emitter is the per-request outbound channel. It stamps the conversation id
// on every fragment, accepts exactly one terminal fragment and nothing after
// it, and blocks producers when the consumer falls behind the buffer.
type Emitter struct {
	conversationID string
	ch             chan Fragment
	gone           chan struct{}

	mu         sync.Mutex
	terminated bool
	sendClosed bool
	goneOnce   sync.Once
}

// NewEmitter creates an emitter for one request. A buffer <= 0 uses
// DefaultBuffer.
func NewEmitter(conversationID string, buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Emitter{
		conversationID: conversationID,
		ch:             make(chan Fragment, buffer),
		gone:           make(chan struct{}),
	}
}

// ConversationID returns the id stamped on every fragment.
func (e *Emitter) ConversationID() string { return e.conversationID }

// Fragments is the consumer side. It is closed after the terminal fragment
// or after Close.
func (e *Emitter) Fragments() <-chan Fragment { return e.ch }

// Emit validates f and queues it. Emits are serialised so fragments leave in
// the order Emit was called.
func (e *Emitter) Emit(ctx context.Context, f Fragment) error {
	if err := f.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminated {
		return ErrTerminated
	}
	if e.sendClosed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.ConversationID = e.conversationID
	select {
	case e.ch <- f:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.gone:
		return ErrClosed
	}

	if f.IsTerminal() {
		e.terminated = true
		e.closeSendLocked()
	}
	return nil
}

// Terminated reports whether a terminal fragment was emitted.
func (e *Emitter) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

// Close ends the producer side without a terminal fragment. Used when a
// request is abandoned; safe to call more than once.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeSendLocked()
}

func (e *Emitter) closeSendLocked() {
	if !e.sendClosed {
		e.sendClosed = true
		close(e.ch)
	}
}

// Abandon is called by the consumer when its connection is torn down. Blocked
// and future Emit calls return ErrClosed.
func (e *Emitter) Abandon() {
	e.goneOnce.Do(func() { close(e.gone) })
}

// Recorder forwards fragments to another sink and keeps a copy of each one
// that was accepted.
type Recorder struct {
	next Sink

	mu    sync.Mutex
	frags []Fragment
}

// NewRecorder wraps next.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Emit(ctx context.Context, f Fragment) error {
	if err := r.next.Emit(ctx, f); err != nil {
		return err
	}
	r.mu.Lock()
	r.frags = append(r.frags, f)
	r.mu.Unlock()
	return nil
}

// Fragments returns a copy of the recorded sequence.
func (r *Recorder) Fragments() []Fragment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Fragment, len(r.frags))
	copy(out, r.frags)
	return out
}

// Succeeded reports whether the recorded sequence ends in done.
func (r *Recorder) Succeeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frags) > 0 && r.frags[len(r.frags)-1].Kind == KindDone
}

// Collector is an in-memory sink that stamps a conversation id and enforces
// the terminal rule, for callers that want the whole sequence at once.
type Collector struct {
	ConversationID string

	mu         sync.Mutex
	frags      []Fragment
	terminated bool
}

func (c *Collector) Emit(ctx context.Context, f Fragment) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrTerminated
	}
	f.ConversationID = c.ConversationID
	c.frags = append(c.frags, f)
	c.terminated = f.IsTerminal()
	return nil
}

// Fragments returns a copy of the collected sequence.
func (c *Collector) Fragments() []Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Fragment, len(c.frags))
	copy(out, c.frags)
	return out
}

// Kinds lists the kinds of the collected fragments in order.
func (c *Collector) Kinds() []Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]Kind, len(c.frags))
	for i, f := range c.frags {
		kinds[i] = f.Kind
	}
	return kinds
}

// AnswerText concatenates every answer_text fragment.
func (c *Collector) AnswerText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var text string
	for _, f := range c.frags {
		text += f.Text()
	}
	return text
}
