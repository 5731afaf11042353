package domain

import "time"

// SessionUser is the identity record carried by an authenticated session.
type SessionUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type Session struct {
	ID        string      `json:"id"`
	ClientID  string      `json:"clientId"`
	User      SessionUser `json:"user"`
	Token     string      `json:"-"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// SessionChange is pushed to a client whenever its session starts or ends.
// A nil Session means the client is signed out.
type SessionChange struct {
	ClientID string   `json:"clientId"`
	Session  *Session `json:"session"`
}

// Account is the identity store's credential record.
type Account struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
