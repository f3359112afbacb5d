// Package domain contains core concepts of the chat system.
// This file defines users, their public projection and the identity bound to a session.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

// Identity is what a verified credential resolves to.
// It is bound to a session for its whole lifetime.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the only user shape that leaves the process.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
