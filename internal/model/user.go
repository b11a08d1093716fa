// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// PasswordHash carries the `json:"-"` tag so it can never be serialised into
// an HTTP response, no matter which handler returns a *User by mistake.
//
// Email is stored exactly as submitted. Lookups are case-sensitive exact
// matches: "A@x.com" and "a@x.com" are two different accounts.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public view of a user returned by signup and login.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Summary returns the public view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email}
}
