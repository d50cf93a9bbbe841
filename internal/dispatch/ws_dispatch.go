package dispatch

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/taxi-dispatch/internal/models"
)

var ErrNoSession = errors.New("no ws session")

// WSSession represents a connected driver or admin console
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev models.RideEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry holds one session per target; a reconnect replaces the old one.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(target string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[target]; ok {
		_ = old.conn.Close()
	}
	r.sessions[target] = &WSSession{conn: conn}
}

// Remove drops the session only if conn is still the registered one.
func (r *WSRegistry) Remove(target string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[target]; ok && s.conn == conn {
		delete(r.sessions, target)
	}
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *WSRegistry) Notify(target string, ev models.RideEvent) error {
	r.mu.RLock()
	s, ok := r.sessions[target]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(ev); err != nil {
		r.Remove(target, s.conn)
		return err
	}
	return nil
}
