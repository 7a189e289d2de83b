package models

import "time"

// User is a registered identity. The same struct is stored in MongoDB and
// scanned from the PostgreSQL users table.
type User struct {
	ID       string    `json:"id"    bson:"_id"`
	Name     string    `json:"name"  bson:"name"`
	Email    string    `json:"email" bson:"email"`
	Password string    `json:"-"     bson:"password"` // bcrypt hash, never serialized
	Date     time.Time `json:"date"  bson:"date"`
}

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
	Date     string `json:"date"`
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
