// Package stream defines the fragment union delivered to callers and the
// emitter that enforces its ordering and termination rules.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/failure"
)

// Kind tags a fragment.
type Kind string

const (
	KindThinking   Kind = "thinking"
	KindAnswerText Kind = "answer_text"
	KindParts      Kind = "parts"
	KindRepairs    Kind = "repairs"
	KindArticles   Kind = "articles"
	KindDone       Kind = "done"
	KindFailed     Kind = "failed"
)

// Payload is implemented only by the payload types in this package.
type Payload interface {
	kind() Kind
}

type ThinkingPayload struct {
	Message string `json:"message"`
}

// AnswerTextPayload carries answer text. A streamed answer arrives as several
// consecutive answer_text fragments whose texts concatenate.
type AnswerTextPayload struct {
	Text string `json:"text"`
}

type PartsPayload struct {
	Parts []catalog.Part `json:"parts"`
}

type RepairsPayload struct {
	Repairs []catalog.Repair `json:"repairs"`
}

type ArticlesPayload struct {
	Articles []catalog.Article `json:"articles"`
}

type DonePayload struct {
	ElapsedMS int64 `json:"elapsed_ms"`
}

type FailedPayload struct {
	Reason string `json:"reason"`
}

func (ThinkingPayload) kind() Kind   { return KindThinking }
func (AnswerTextPayload) kind() Kind { return KindAnswerText }
func (PartsPayload) kind() Kind      { return KindParts }
func (RepairsPayload) kind() Kind    { return KindRepairs }
func (ArticlesPayload) kind() Kind   { return KindArticles }
func (DonePayload) kind() Kind       { return KindDone }
func (FailedPayload) kind() Kind     { return KindFailed }

// Fragment is one typed piece of a streamed response.
type Fragment struct {
	Kind           Kind
	ConversationID string
	Payload        Payload
}

func newFragment(p Payload) Fragment { return Fragment{Kind: p.kind(), Payload: p} }

func Thinking(msg string) Fragment                { return newFragment(ThinkingPayload{Message: msg}) }
func AnswerText(text string) Fragment             { return newFragment(AnswerTextPayload{Text: text}) }
func Parts(parts []catalog.Part) Fragment         { return newFragment(PartsPayload{Parts: parts}) }
func Repairs(repairs []catalog.Repair) Fragment   { return newFragment(RepairsPayload{Repairs: repairs}) }
func Articles(articles []catalog.Article) Fragment { return newFragment(ArticlesPayload{Articles: articles}) }
func Failed(reason string) Fragment               { return newFragment(FailedPayload{Reason: reason}) }

// Done builds the success terminal fragment.
func Done(elapsed time.Duration) Fragment {
	return newFragment(DonePayload{ElapsedMS: elapsed.Milliseconds()})
}

// IsTerminal reports whether f ends a request.
func (f Fragment) IsTerminal() bool {
	return f.Kind == KindDone || f.Kind == KindFailed
}

// Elapsed returns the duration carried by a done fragment.
func (f Fragment) Elapsed() time.Duration {
	if d, ok := f.Payload.(DonePayload); ok {
		return time.Duration(d.ElapsedMS) * time.Millisecond
	}
	return 0
}

// Text returns the text of an answer_text fragment.
func (f Fragment) Text() string {
	if a, ok := f.Payload.(AnswerTextPayload); ok {
		return a.Text
	}
	return ""
}

// Validate checks that the tag and payload agree.
func (f Fragment) Validate() error {
	if f.Payload == nil {
		return failure.New(failure.MalformedFragment, "stream.validate", eris.Errorf("%q fragment has no payload", f.Kind))
	}
	switch f.Kind {
	case KindThinking, KindAnswerText, KindParts, KindRepairs, KindArticles, KindDone, KindFailed:
		if f.Payload.kind() != f.Kind {
			return failure.New(failure.MalformedFragment, "stream.validate",
				eris.Errorf("%q fragment carries %q payload", f.Kind, f.Payload.kind()))
		}
		return nil
	default:
		return failure.New(failure.MalformedFragment, "stream.validate", eris.Errorf("unknown fragment kind %q", f.Kind))
	}
}

type wireFragment struct {
	Type           Kind            `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFragment{Type: f.Kind, ConversationID: f.ConversationID, Payload: payload})
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	var w wireFragment
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var (
		p   Payload
		err error
	)
	switch w.Type {
	case KindThinking:
		p, err = decodePayload[ThinkingPayload](w.Payload)
	case KindAnswerText:
		p, err = decodePayload[AnswerTextPayload](w.Payload)
	case KindParts:
		p, err = decodePayload[PartsPayload](w.Payload)
	case KindRepairs:
		p, err = decodePayload[RepairsPayload](w.Payload)
	case KindArticles:
		p, err = decodePayload[ArticlesPayload](w.Payload)
	case KindDone:
		p, err = decodePayload[DonePayload](w.Payload)
	case KindFailed:
		p, err = decodePayload[FailedPayload](w.Payload)
	default:
		return failure.New(failure.MalformedFragment, "stream.decode", fmt.Errorf("unknown fragment kind %q", w.Type))
	}
	if err != nil {
		return err
	}
	*f = Fragment{Kind: w.Type, ConversationID: w.ConversationID, Payload: p}
	return nil
}

func decodePayload[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
