package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/expense-tracker/backend/internal/models"
)

// MemoryStore is a process-local user and expense store. It backs
// STORE_BACKEND=memory and the tests; data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User // by id
	expenses map[primitive.ObjectID]models.Expense
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		expenses: make(map[primitive.ObjectID]models.Expense),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// UserCount reports how many users are stored.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) Insert(_ context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = primitive.NewObjectID()
	s.expenses[e.ID] = *e
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Expense{}
	for _, e := range s.expenses {
		if e.User == userID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Expense) int {
		return b.Date.Compare(a.Date)
	})
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch models.UpdateExpenseRequest) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	s.expenses[e.ID] = e
	return &e, nil
}

func (s *MemoryStore) SetReceiptKey(_ context.Context, id, key string) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.ReceiptKey = key
	s.expenses[e.ID] = e
	return &e, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(id)
	if !ok {
		return ErrNotFound
	}
	delete(s.expenses, e.ID)
	return nil
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(id string) (models.Expense, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Expense{}, false
	}
	e, ok := s.expenses[oid]
	return e, ok
}
