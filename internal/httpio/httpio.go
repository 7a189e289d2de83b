// Package httpio holds the JSON request/response plumbing shared by the
// HTTP handlers.
package httpio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError describes one missing or invalid field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError is returned by Decode when the body parses but fails the
// presence checks declared on the target struct.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request data: %d field(s)", len(e.Fields))
}

// ErrBadBody is returned by Decode when the body is not valid JSON.
var ErrBadBody = errors.New("invalid request body")

type badRequestResponse struct {
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// Decode parses the JSON body into v and runs its validate tags. An empty
// body is treated as {}.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Type:    fe.Tag(),
			})
		}
		return out
	}
	return nil
}

// WriteDecodeError answers a failed Decode with 400.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, badRequestResponse{
			Message: "Invalid request data",
			Details: verr.Fields,
		})
		return
	}
	WriteMessage(w, http.StatusBadRequest, "Invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	default:
		return "Invalid value"
	}
}
