package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense is a single financial transaction owned by one user.
type Expense struct {
	ID         primitive.ObjectID `json:"_id"                  bson:"_id,omitempty"`
	Title      string             `json:"title"                bson:"title"`
	Amount     float64            `json:"amount"               bson:"amount"`
	Category   string             `json:"category"             bson:"category"`
	Platform   string             `json:"platform"             bson:"platform"`
	Date       time.Time          `json:"date"                 bson:"date"`
	User       string             `json:"user"                 bson:"user"`
	ReceiptKey string             `json:"receiptKey,omitempty" bson:"receipt_key,omitempty"`
}

// CreateExpenseRequest is the JSON body for POST /expenses/add.
// It has no owner field; the owner comes from the caller's token.
type CreateExpenseRequest struct {
	Title    string   `json:"title"    validate:"required"`
	Amount   *float64 `json:"amount"   validate:"required"`
	Category string   `json:"category"`
	Platform string   `json:"platform"`
	Date     string   `json:"date"`
}

// UpdateExpenseRequest is the JSON body for PUT /expenses/{id}.
// Nil fields are left untouched.
type UpdateExpenseRequest struct {
	Title    *string  `json:"title"`
	Amount   *float64 `json:"amount"`
	Category *string  `json:"category"`
}

// MessageResponse is the generic {"message": ...} body.
type MessageResponse struct {
	Message string `json:"message"`
}
