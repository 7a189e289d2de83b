package expense

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/expense-tracker/backend/internal/auth"
	"github.com/ayush/expense-tracker/backend/internal/httpio"
	"github.com/ayush/expense-tracker/backend/internal/models"
	"github.com/ayush/expense-tracker/backend/internal/store"
)

// MaxReceiptSize bounds receipt uploads.
const MaxReceiptSize = 5 << 20

// op names an action in client-facing error messages.
type op struct{ verb, gerund string }

var (
	opAdd      = op{"add", "adding"}
	opList     = op{"list", "listing"}
	opRead     = op{"read", "reading"}
	opUpdate   = op{"update", "updating"}
	opDelete   = op{"delete", "deleting"}
	opUpload   = op{"attach a receipt to", "uploading receipt for"}
	opDownload = op{"read the receipt of", "downloading receipt for"}
)

// Expenses is what the HTTP layer needs from the expense service.
type Expenses interface {
	Create(ctx context.Context, owner string, req models.CreateExpenseRequest) (*models.Expense, error)
	ListMine(ctx context.Context, owner string) ([]models.Expense, error)
	Get(ctx context.Context, owner, id string) (*models.Expense, error)
	Update(ctx context.Context, owner, id string, patch models.UpdateExpenseRequest) (*models.Expense, error)
	Delete(ctx context.Context, owner, id string) error
	AttachReceipt(ctx context.Context, owner, id string, r io.Reader, size int64, contentType string) (*models.Expense, error)
	Receipt(ctx context.Context, owner, id string) (*store.Object, error)
}

// Handler holds expense HTTP handlers. Every route must sit behind
// middleware.RequireAuth.
type Handler struct {
	svc Expenses
	log logrus.FieldLogger
}

func NewHandler(svc Expenses, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Create adds an expense owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.CreateExpenseRequest
	if err := httpio.Decode(r, &req); err != nil {
		httpio.WriteDecodeError(w, err)
		return
	}

	e, err := h.svc.Create(r.Context(), owner, req)
	if err != nil {
		h.fail(w, r, err, opAdd, http.StatusNotFound)
		return
	}
	httpio.WriteJSON(w, http.StatusCreated, e)
}

// List returns the caller's expenses, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListMine(r.Context(), owner)
	if err != nil {
		h.fail(w, r, err, opList, http.StatusNotFound)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, list)
}

// Get returns a single expense.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, opRead, http.StatusNotFound)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, e)
}

// Update patches title, amount and category. A missing expense answers 400,
// which existing clients rely on.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	var patch models.UpdateExpenseRequest
	if err := httpio.Decode(r, &patch); err != nil {
		httpio.WriteDecodeError(w, err)
		return
	}

	e, err := h.svc.Update(r.Context(), owner, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err, opUpdate, http.StatusBadRequest)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, e)
}

// Delete removes an expense.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, opDelete, http.StatusNotFound)
		return
	}
	httpio.WriteMessage(w, http.StatusOK, "Expense deleted successfully")
}

// UploadReceipt stores the raw request body as the expense's receipt.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxReceiptSize))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpio.WriteMessage(w, http.StatusRequestEntityTooLarge, "Receipt is too large")
			return
		}
		httpio.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(data) == 0 {
		httpio.WriteMessage(w, http.StatusBadRequest, "Receipt is empty")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	e, err := h.svc.AttachReceipt(r.Context(), owner, chi.URLParam(r, "id"),
		bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		h.fail(w, r, err, opUpload, http.StatusNotFound)
		return
	}
	httpio.WriteJSON(w, http.StatusOK, e)
}

// DownloadReceipt streams the expense's receipt file.
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.caller(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.Receipt(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, opDownload, http.StatusNotFound)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.log.WithError(err).Warn("receipt stream interrupted")
	}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok || p.ID == "" {
		httpio.WriteMessage(w, http.StatusUnauthorized, "No token, authorization denied")
		return "", false
	}
	return p.ID, true
}

// fail maps service errors onto status codes. Ownership violations answer
// 401 to match what existing clients expect.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, o op, notFoundStatus int) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpio.WriteMessage(w, notFoundStatus, "Expense not found")
	case errors.Is(err, ErrNotOwner):
		httpio.WriteMessage(w, http.StatusUnauthorized, "Unauthorized to "+o.verb+" this expense")
	case errors.Is(err, ErrNoReceipt):
		httpio.WriteMessage(w, http.StatusNotFound, "Receipt not found")
	case errors.Is(err, ErrReceiptsDisabled):
		httpio.WriteMessage(w, http.StatusNotImplemented, "Receipt storage is not enabled")
	case errors.Is(err, models.ErrInvalidDate):
		httpio.WriteMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"op":     o.verb,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("expense request failed")
		httpio.WriteMessage(w, http.StatusInternalServerError, "Server error while "+o.gerund+" expense")
	}
}
