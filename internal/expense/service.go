package expense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayush/expense-tracker/backend/internal/models"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

var (
	// ErrNotFound is returned when the expense id matches no record.
	ErrNotFound = errors.New("expense not found")
	// ErrNotOwner is returned when the caller does not own the expense.
	ErrNotOwner = errors.New("caller does not own this expense")
	// ErrNoReceipt is returned when an expense has no receipt attached.
	ErrNoReceipt = errors.New("expense has no receipt")
	// ErrReceiptsDisabled is returned when no file store is configured.
	ErrReceiptsDisabled = errors.New("receipt storage is not configured")
)

// Store defines the interface for expense persistence.
// Lookups of absent or malformed ids return store.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, e *models.Expense) error
	ListByUser(ctx context.Context, userID string) ([]models.Expense, error)
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	Update(ctx context.Context, id string, patch models.UpdateExpenseRequest) (*models.Expense, error)
	SetReceiptKey(ctx context.Context, id, key string) (*models.Expense, error)
	Delete(ctx context.Context, id string) error
}

// ListCache caches ListByUser results per owner. Implementations swallow
// their own errors.
//
// Invalidate bumps the owner's generation. Set must drop the list when the
// generation no longer equals gen, so a read that raced a write cannot
// repopulate the cache with the old list.
type ListCache interface {
	Get(ctx context.Context, userID string) ([]models.Expense, bool)
	Generation(ctx context.Context, userID string) (int64, bool)
	Set(ctx context.Context, userID string, gen int64, list []models.Expense)
	Invalidate(ctx context.Context, userID string)
}

// FileStore defines the interface for receipt file storage.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*store.Object, error)
	Remove(ctx context.Context, key string) error
}

// Service enforces that only the owner of an expense can read, change or
// delete it. Cache and files are optional.
type Service struct {
	store Store
	cache ListCache
	files FileStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithCache enables the per-owner list cache.
func WithCache(c ListCache) Option { return func(s *Service) { s.cache = c } }

// WithFiles enables receipt uploads.
func WithFiles(f FileStore) Option { return func(s *Service) { s.files = f } }

func NewService(st Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{store: st, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReceiptsEnabled reports whether a file store is configured.
func (s *Service) ReceiptsEnabled() bool { return s.files != nil }

// Create stores a new expense owned by owner.
func (s *Service) Create(ctx context.Context, owner string, req models.CreateExpenseRequest) (*models.Expense, error) {
	date, err := models.ParseDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}
	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}

	e := &models.Expense{
		Title:    req.Title,
		Amount:   amount,
		Category: req.Category,
		Platform: req.Platform,
		Date:     date,
		User:     owner,
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	s.invalidate(ctx, owner)
	return e, nil
}

// ListMine returns the owner's expenses, newest first. A user with no
// expenses gets an empty slice.
func (s *Service) ListMine(ctx context.Context, owner string) ([]models.Expense, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		if list, ok := s.cache.Get(ctx, owner); ok {
			return list, nil
		}
		gen, cacheable = s.cache.Generation(ctx, owner)
	}
	list, err := s.store.ListByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if list == nil {
		list = []models.Expense{}
	}
	if cacheable {
		s.cache.Set(ctx, owner, gen, list)
	}
	return list, nil
}

// Get returns one expense if owner owns it.
func (s *Service) Get(ctx context.Context, owner, id string) (*models.Expense, error) {
	return s.owned(ctx, owner, id)
}

// Update applies patch to an expense owned by owner. Only title, amount and
// category can change.
func (s *Service) Update(ctx context.Context, owner, id string, patch models.UpdateExpenseRequest) (*models.Expense, error) {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return nil, err
	}
	e, err := s.store.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(ctx, owner)
	return e, nil
}

// Delete removes an expense owned by owner together with its receipt.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	e, err := s.owned(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(ctx, owner)

	if e.ReceiptKey != "" && s.files != nil {
		if err := s.files.Remove(ctx, e.ReceiptKey); err != nil {
			s.log.WithError(err).WithField("key", e.ReceiptKey).Warn("orphaned receipt not removed")
		}
	}
	return nil
}

// AttachReceipt stores a receipt file for an expense owned by owner,
// replacing any previous one.
func (s *Service) AttachReceipt(ctx context.Context, owner, id string, r io.Reader, size int64, contentType string) (*models.Expense, error) {
	if s.files == nil {
		return nil, ErrReceiptsDisabled
	}
	e, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	key := path.Join(owner, id, uuid.NewString())
	if err := s.files.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("upload receipt: %w", err)
	}
	updated, err := s.store.SetReceiptKey(ctx, id, key)
	if err != nil {
		if rmErr := s.files.Remove(ctx, key); rmErr != nil {
			s.log.WithError(rmErr).WithField("key", key).Warn("orphaned receipt not removed")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save receipt key: %w", err)
	}
	if e.ReceiptKey != "" {
		if err := s.files.Remove(ctx, e.ReceiptKey); err != nil {
			s.log.WithError(err).WithField("key", e.ReceiptKey).Warn("replaced receipt not removed")
		}
	}
	s.invalidate(ctx, owner)
	return updated, nil
}

// Receipt opens the receipt of an expense owned by owner. The caller must
// close the returned body.
func (s *Service) Receipt(ctx context.Context, owner, id string) (*store.Object, error) {
	if s.files == nil {
		return nil, ErrReceiptsDisabled
	}
	e, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if e.ReceiptKey == "" {
		return nil, ErrNoReceipt
	}
	obj, err := s.files.Get(ctx, e.ReceiptKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoReceipt
		}
		return nil, fmt.Errorf("download receipt: %w", err)
	}
	return obj, nil
}

// owned fetches the expense and applies the ownership check.
func (s *Service) owned(ctx context.Context, owner, id string) (*models.Expense, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	if e.User != owner {
		return nil, ErrNotOwner
	}
	return e, nil
}

func (s *Service) invalidate(ctx context.Context, owner string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, owner)
	}
}
