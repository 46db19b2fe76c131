package application

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrBookNotFound       = errors.New("book not found")
	ErrInvalidStatus      = errors.New("invalid book status")
)
