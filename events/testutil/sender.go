// Package testutil provides an in-memory events.Sender.
package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kbukum/mira/component"
	"github.com/kbukum/mira/testutil"
)

var _ testutil.TestComponent = (*RecordingSender)(nil)

// Message is one recorded send.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// RecordingSender records every message instead of writing to a broker.
type RecordingSender struct {
	mu       sync.Mutex
	messages []Message
	err      error
	gate     chan struct{}
	closed   bool
}

// NewRecordingSender returns an empty sender.
func NewRecordingSender() *RecordingSender { return &RecordingSender{} }

// SetError makes subsequent sends fail with err; nil restores success.
func (s *RecordingSender) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Block holds every send until release is called.
func (s *RecordingSender) Block() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gate = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *RecordingSender) SendJSON(_ context.Context, topic, key string, value interface{}) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, Message{Topic: topic, Key: key, Value: data})
	return nil
}

// Messages returns a copy of the recorded messages.
func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	return cp
}

// Closed reports whether Close was called.
func (s *RecordingSender) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *RecordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// --- component.Component ---

func (s *RecordingSender) Name() string { return "events-sender-fake" }
func (s *RecordingSender) Start(_ context.Context) error { return nil }
func (s *RecordingSender) Stop(_ context.Context) error { return nil }

func (s *RecordingSender) Health(_ context.Context) component.Health {
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Reset drops recorded messages and the scripted error.
func (s *RecordingSender) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.err = nil
	s.gate = nil
	s.closed = false
	return nil
}
