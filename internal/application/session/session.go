// Package session es el contexto explícito de sesión: identidad, acceso resuelto, latch de redirección
// y la selección efímera de ítems del folleto. Se inyecta en los handlers en lugar de estado global.
package session

import (
	"sync"
	"time"

	"github.com/jhoicas/mandoubi-api/internal/domain/access"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	"github.com/jhoicas/mandoubi-api/internal/domain/navigation"
)

// Session estado por usuario autenticado. Seguro para uso concurrente.
type Session struct {
	UserID string
	Email  string

	latch navigation.Latch

	mu        sync.RWMutex
	access    access.Access
	selection []entity.Item
	lastSeen  time.Time
}

func newSession(userID, email string) *Session {
	return &Session{UserID: userID, Email: email, lastSeen: time.Now()}
}

// Access último acceso resuelto.
func (s *Session) Access() access.Access {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) setAccess(a access.Access) {
	s.mu.Lock()
	s.access = a
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Toggle agrega el ítem si no está seleccionado o lo quita si ya lo está (identidad por ID).
// Devuelve true si quedó seleccionado.
func (s *Session) Toggle(item entity.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.selection {
		if it.ID == item.ID {
			s.selection = append(s.selection[:i:i], s.selection[i+1:]...)
			return false
		}
	}
	s.selection = append(s.selection, item)
	return true
}

// IsSelected informa si el ítem con ese ID está en la selección.
func (s *Session) IsSelected(itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.selection {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

// Selected copia de la selección en orden de inserción.
func (s *Session) Selected() []entity.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Item, len(s.selection))
	copy(out, s.selection)
	return out
}

// ClearSelection vacía la selección.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()
}

// Registry sesiones activas por usuario.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry crea un registro vacío.
func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Get devuelve la sesión del usuario si existe.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Open devuelve la sesión del usuario, creándola si no existe.
func (r *Registry) Open(userID, email string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		s = newSession(userID, email)
		r.sessions[userID] = s
	}
	return s
}

// Close quita la sesión y la devuelve (nil si no había).
func (r *Registry) Close(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[userID]
	delete(r.sessions, userID)
	return s
}

// Sweep descarta las sesiones sin actividad desde before. Devuelve cuántas quitó.
func (r *Registry) Sweep(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		s.mu.RLock()
		idle := s.lastSeen.Before(before)
		s.mu.RUnlock()
		if idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len número de sesiones activas.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
