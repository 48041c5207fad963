package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bodyshop-gallery/internal/blur/editor"
)

var ErrSessionNotFound = errors.New("editor session not found")

// ============================================================
// Editor Sessions
// ============================================================

// Sessions хранит открытые редакторы по id. Контроллер однопоточный,
// поэтому каждый вызов With сериализуется своим мьютексом.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

type session struct {
	mu      sync.Mutex
	ctrl    *editor.Controller
	touched time.Time
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (m *Sessions) Issue(ctrl *editor.Controller) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.sessions[id] = &session{ctrl: ctrl, touched: m.now()}
	return id
}

// With runs fn against the session's controller while holding its lock.
func (m *Sessions) With(id string, fn func(*editor.Controller) error) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = m.now()
	return fn(s.ctrl)
}

func (m *Sessions) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	s.ctrl.Close()
	s.mu.Unlock()
	return nil
}

// CloseIdle closes sessions untouched for longer than maxIdle and returns
// how many were closed.
func (m *Sessions) CloseIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if s.mu.TryLock() {
			if s.touched.Before(cutoff) {
				stale = append(stale, id)
			}
			s.mu.Unlock()
		}
	}
	m.mu.Unlock()

	closed := 0
	for _, id := range stale {
		if m.Close(id) == nil {
			closed++
		}
	}
	return closed
}

func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
