package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayush/expense-tracker/backend/internal/httpio"
	"github.com/ayush/expense-tracker/backend/internal/models"
)

// Authenticator is what the HTTP layer needs from the auth service.
type Authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc Authenticator
	log logrus.FieldLogger
}

func NewHandler(svc Authenticator, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpio.Decode(r, &req); err != nil {
		httpio.WriteDecodeError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	switch {
	case errors.Is(err, ErrUserExists):
		httpio.WriteMessage(w, http.StatusBadRequest, "User already exists")
		return
	case errors.Is(err, models.ErrInvalidDate):
		httpio.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.WithError(err).WithField("email", req.Email).Error("registration failed")
		httpio.WriteMessage(w, http.StatusInternalServerError, "Server Error during registration")
		return
	}

	h.log.WithField("user", user.ID).Info("user registered")
	httpio.WriteMessage(w, http.StatusCreated, "User registered successfully! 🎉")
}

// Login authenticates a user and returns a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpio.Decode(r, &req); err != nil {
		httpio.WriteDecodeError(w, err)
		return
	}

	token, err := h.svc.Login(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpio.WriteMessage(w, http.StatusBadRequest, "INVALID CREDENTIALS")
		return
	case err != nil:
		h.log.WithError(err).Error("login failed")
		httpio.WriteMessage(w, http.StatusInternalServerError, "Server Error during login")
		return
	}

	httpio.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful! 🚀",
		Token:   token,
	})
}

// Me returns the currently authenticated user. It must sit behind the auth gate.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok || p.ID == "" {
		httpio.WriteMessage(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}

	user, err := h.svc.Me(r.Context(), p.ID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		httpio.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		h.log.WithError(err).WithField("user", p.ID).Error("profile lookup failed")
		httpio.WriteMessage(w, http.StatusInternalServerError, "Server Error")
		return
	}

	httpio.WriteJSON(w, http.StatusOK, user)
}
