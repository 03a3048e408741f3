// Package protocol defines the messages exchanged between the dispatcher
// and worker handles: one request type and a closed set of events.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"codeberg.org/snonux/ynlb/internal/translation"
)

// EventType discriminates events on the wire
type EventType string

const (
	TypeInitiate  EventType = "initiate"
	TypeProgress  EventType = "progress"
	TypeDone      EventType = "done"
	TypeReady     EventType = "ready"
	TypeUpdate    EventType = "update"
	TypeCompleted EventType = "completed"
	TypeFailed    EventType = "failed"
)

// ErrInvalidRequest is returned for requests rejected at the boundary
var ErrInvalidRequest = errors.New("invalid request")

// Request asks a worker to translate one item
type Request struct {
	Text   string `json:"text"`
	Index  int    `json:"index"`
	Stream bool   `json:"stream,omitempty"`
}

// Validate checks the request before it reaches a worker
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("empty text: %w", ErrInvalidRequest)
	}
	if r.Index < 0 {
		return fmt.Errorf("negative index %d: %w", r.Index, ErrInvalidRequest)
	}
	return nil
}

// Event is posted by a worker. Implementations are limited to the types
// in this package.
type Event interface {
	Type() EventType
	WorkerID() int
	isEvent()
}

// Load reports model loading progress of a worker's pipeline
type Load struct {
	Worker   int
	State    translation.LoadState
	File     string
	Progress float64
}

// Update carries a partial translation
type Update struct {
	Worker int
	Index  int
	Text   string
}

// Completed carries the final translation of an item
type Completed struct {
	Worker int
	Index  int
	Text   string
}

// Failed reports that an item could not be translated
type Failed struct {
	Worker int
	Index  int
	Err    error
}

func (e Load) Type() EventType {
	switch e.State {
	case translation.LoadInitiate:
		return TypeInitiate
	case translation.LoadDone:
		return TypeDone
	case translation.LoadReady:
		return TypeReady
	default:
		return TypeProgress
	}
}
func (e Update) Type() EventType    { return TypeUpdate }
func (e Completed) Type() EventType { return TypeCompleted }
func (e Failed) Type() EventType    { return TypeFailed }

func (e Load) WorkerID() int      { return e.Worker }
func (e Update) WorkerID() int    { return e.Worker }
func (e Completed) WorkerID() int { return e.Worker }
func (e Failed) WorkerID() int    { return e.Worker }

func (Load) isEvent()      {}
func (Update) isEvent()    {}
func (Completed) isEvent() {}
func (Failed) isEvent()    {}

// Terminal returns the item index of a completed or failed event
func Terminal(ev Event) (index int, ok bool) {
	switch e := ev.(type) {
	case Completed:
		return e.Index, true
	case Failed:
		return e.Index, true
	default:
		return 0, false
	}
}

type envelope struct {
	Type     EventType `json:"type"`
	Worker   int       `json:"worker"`
	Index    *int      `json:"index,omitempty"`
	Data     string    `json:"data,omitempty"`
	File     string    `json:"file,omitempty"`
	Progress *float64  `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Marshal encodes an event as a JSON object with a "type" discriminator
func Marshal(ev Event) ([]byte, error) {
	env := envelope{Type: ev.Type(), Worker: ev.WorkerID()}

	switch e := ev.(type) {
	case Load:
		env.File = e.File
		progress := e.Progress
		env.Progress = &progress
	case Update:
		env.Index = &e.Index
		env.Data = e.Text
	case Completed:
		env.Index = &e.Index
		env.Data = e.Text
	case Failed:
		env.Index = &e.Index
		if e.Err != nil {
			env.Error = e.Err.Error()
		}
	default:
		return nil, fmt.Errorf("unknown event %T", ev)
	}

	return json.Marshal(env)
}

// Encoder writes events as newline delimited JSON. Safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one event followed by a newline
func (e *Encoder) Encode(ev Event) error {
	data, err := Marshal(ev)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
