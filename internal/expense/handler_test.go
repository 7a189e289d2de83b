package expense

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/expense-tracker/backend/internal/auth"
	"github.com/ayush/expense-tracker/backend/internal/models"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

const userHeader = "X-Test-User"

// asUser stands in for RequireAuth: it trusts the test header.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(userHeader); id != "" {
			r = r.WithContext(auth.WithPrincipal(r.Context(), auth.Principal{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

func routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser)
	r.Post("/expenses/add", h.Create)
	r.Get("/expenses", h.List)
	r.Get("/expenses/{id}", h.Get)
	r.Put("/expenses/{id}", h.Update)
	r.Delete("/expenses/{id}", h.Delete)
	r.Put("/expenses/{id}/receipt", h.UploadReceipt)
	r.Get("/expenses/{id}/receipt", h.DownloadReceipt)
	return r
}

type fixture struct {
	router http.Handler
	mem    *store.MemoryStore
	hook   *test.Hook
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	mem := store.NewMemoryStore()
	svc := NewService(mem, logger, opts...)
	return &fixture{router: routes(NewHandler(svc, logger)), mem: mem, hook: hook}
}

func (f *fixture) do(method, target, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) create(t *testing.T, user, body string) models.Expense {
	t.Helper()
	w := f.do(http.MethodPost, "/expenses/add", user, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var e models.Expense
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

// ---- tests ----

func TestHandler_Create(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/expenses/add", "alice",
		`{"title":"Coffee","amount":5,"category":"Food","platform":"cash","user":"mallory"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Coffee", body["title"])
	assert.Equal(t, 5.0, body["amount"])
	assert.Equal(t, "alice", body["user"])
	assert.NotEmpty(t, body["_id"])
	assert.NotContains(t, body, "receiptKey")
}

func TestHandler_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing title", `{"amount":5}`, "Invalid request data"},
		{"missing amount", `{"title":"Coffee"}`, "Invalid request data"},
		{"malformed json", `{"title":`, "Invalid request body"},
		{"bad date", `{"title":"Coffee","amount":5,"date":"tomorrow"}`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/expenses/add", "alice", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, messageOf(t, w))
			}
		})
	}

	list, err := f.mem.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandler_ZeroAmountIsAccepted(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "alice", `{"title":"Freebie","amount":0}`)
	assert.Equal(t, 0.0, e.Amount)
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/expenses", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	f.create(t, "alice", `{"title":"old","amount":1,"date":"2024-01-01"}`)
	f.create(t, "alice", `{"title":"new","amount":2,"date":"2024-06-01"}`)
	f.create(t, "bob", `{"title":"bobs","amount":3}`)

	w = f.do(http.MethodGet, "/expenses", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Expense
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
	assert.Equal(t, "old", list[1].Title)
}

func TestHandler_Get(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "alice", `{"title":"Coffee","amount":5}`)
	path := "/expenses/" + e.ID.Hex()

	w := f.do(http.MethodGet, path, "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, path, "bob", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized to read this expense", messageOf(t, w))

	w = f.do(http.MethodGet, "/expenses/665f1c2e8b3a4d0012345678", "alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Expense not found", messageOf(t, w))
}

func TestHandler_Update(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "alice", `{"title":"Coffee","amount":5,"category":"Food"}`)
	path := "/expenses/" + e.ID.Hex()

	t.Run("owner patches amount", func(t *testing.T) {
		w := f.do(http.MethodPut, path, "alice", `{"amount":6}`)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.Expense
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 6.0, got.Amount)
		assert.Equal(t, "Coffee", got.Title)
		assert.Equal(t, "Food", got.Category)
	})

	t.Run("empty body leaves record unchanged", func(t *testing.T) {
		w := f.do(http.MethodPut, path, "alice", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got models.Expense
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 6.0, got.Amount)
		assert.Equal(t, "Coffee", got.Title)
	})

	t.Run("other user is rejected", func(t *testing.T) {
		w := f.do(http.MethodPut, path, "bob", `{"title":"Hacked"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Unauthorized to update this expense", messageOf(t, w))

		stored, err := f.mem.GetByID(context.Background(), e.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Coffee", stored.Title)
	})

	t.Run("missing expense answers 400", func(t *testing.T) {
		w := f.do(http.MethodPut, "/expenses/665f1c2e8b3a4d0012345678", "alice", `{"amount":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Expense not found", messageOf(t, w))
	})

	t.Run("malformed id answers 400", func(t *testing.T) {
		w := f.do(http.MethodPut, "/expenses/nope", "alice", `{"amount":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "alice", `{"title":"Coffee","amount":5}`)
	path := "/expenses/" + e.ID.Hex()

	w := f.do(http.MethodDelete, path, "bob", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized to delete this expense", messageOf(t, w))

	w = f.do(http.MethodDelete, path, "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Expense deleted successfully", messageOf(t, w))

	w = f.do(http.MethodDelete, path, "alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Expense not found", messageOf(t, w))
}

func TestHandler_NoPrincipal(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/expenses", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// failingExpenses reports a storage failure for every call.
type failingExpenses struct{ err error }

func (f failingExpenses) Create(context.Context, string, models.CreateExpenseRequest) (*models.Expense, error) {
	return nil, f.err
}
func (f failingExpenses) ListMine(context.Context, string) ([]models.Expense, error) {
	return nil, f.err
}
func (f failingExpenses) Get(context.Context, string, string) (*models.Expense, error) {
	return nil, f.err
}
func (f failingExpenses) Update(context.Context, string, string, models.UpdateExpenseRequest) (*models.Expense, error) {
	return nil, f.err
}
func (f failingExpenses) Delete(context.Context, string, string) error { return f.err }
func (f failingExpenses) AttachReceipt(context.Context, string, string, io.Reader, int64, string) (*models.Expense, error) {
	return nil, f.err
}
func (f failingExpenses) Receipt(context.Context, string, string) (*store.Object, error) {
	return nil, f.err
}

func TestHandler_ServerErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := routes(NewHandler(failingExpenses{err: errors.New("connection reset")}, logger))

	tests := []struct {
		method, path, body, msg string
	}{
		{http.MethodPost, "/expenses/add", `{"title":"x","amount":1}`, "Server error while adding expense"},
		{http.MethodPut, "/expenses/abc", `{"amount":1}`, "Server error while updating expense"},
		{http.MethodDelete, "/expenses/abc", "", "Server error while deleting expense"},
	}

	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set(userHeader, "alice")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tc.msg, messageOf(t, w))
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestHandler_Receipts(t *testing.T) {
	files := newFakeFiles()
	f := newFixture(t, WithFiles(files))
	e := f.create(t, "alice", `{"title":"Dinner","amount":40}`)
	path := "/expenses/" + e.ID.Hex() + "/receipt"

	w := f.do(http.MethodGet, path, "alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader("%PDF-1.4 receipt"))
	req.Header.Set(userHeader, "alice")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Expense
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ReceiptKey)

	w = f.do(http.MethodGet, path, "bob", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(userHeader, "alice")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 receipt", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestHandler_ReceiptLimits(t *testing.T) {
	f := newFixture(t, WithFiles(newFakeFiles()))
	e := f.create(t, "alice", `{"title":"Dinner","amount":40}`)
	path := "/expenses/" + e.ID.Hex() + "/receipt"

	w := f.do(http.MethodPut, path, "alice", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := strings.Repeat("x", MaxReceiptSize+1)
	w = f.do(http.MethodPut, path, "alice", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandler_ReceiptsDisabled(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "alice", `{"title":"Dinner","amount":40}`)

	w := f.do(http.MethodPut, "/expenses/"+e.ID.Hex()+"/receipt", "alice", "data")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
