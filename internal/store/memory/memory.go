package memory

import (
	"sync"

	"go.uber.org/zap"

	"notistream/internal/model"
)

// Store is the in-memory NotificationStore used in development and tests.
// It keeps a registry of known booking ids so the dangling-reference retry
// behaves like the SQL store's foreign key.
type Store struct {
	mu       sync.Mutex
	records  []model.Notification
	bookings map[string]struct{}
	log      *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{bookings: make(map[string]struct{}), log: logger}
}

// AddBooking registers a booking id as referentially valid.
func (s *Store) AddBooking(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[id] = struct{}{}
}

// RemoveBooking drops a booking id, turning later references to it dangling.
func (s *Store) RemoveBooking(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
}
