package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash always holds a bcrypt hash, never the plain password.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Confirmed    bool      `db:"confirmed"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// EmailAddress and Identifier let a User act as a mail recipient.
func (u *User) EmailAddress() string { return u.Email }

func (u *User) Identifier() string { return u.ID }

func (u *User) DisplayName() string { return u.Username }

// Session is the server-side record backing a session cookie.
type Session struct {
	UserID    string
	Username  string
	Email     string
	SID       string
	CreatedAt time.Time
}
