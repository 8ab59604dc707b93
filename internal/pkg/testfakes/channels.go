// Package testfakes provides in-memory channel adapters used by service
// tests.
package testfakes

import (
	"sync"

	"github.com/google/uuid"
)

// InAppEmit records one call to InAppSink.Emit.
type InAppEmit struct {
	UserID  uuid.UUID
	Payload interface{}
}

// InAppSink captures in-app emits. Set Err to make every emit fail.
type InAppSink struct {
	mu      sync.Mutex
	Err     error
	Emitted []InAppEmit
}

func (s *InAppSink) Emit(userID uuid.UUID, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.Emitted = append(s.Emitted, InAppEmit{UserID: userID, Payload: payload})

	return nil
}

// EmailSend records one call to EmailSink.Send.
type EmailSend struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSink captures email sends. Set Err to make every send fail.
type EmailSink struct {
	mu   sync.Mutex
	Err  error
	Sent []EmailSend
}

func (s *EmailSink) Send(to, subject, text, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.Sent = append(s.Sent, EmailSend{To: to, Subject: subject, Text: text, HTML: html})

	return nil
}
