// Package token issues and verifies signed, time-limited tokens for account
// confirmation and password reset.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalid = errors.New("token invalid")
	ErrExpired = errors.New("token expired")
)

// Purpose binds a token to a single flow.
type Purpose string

const (
	PurposeConfirm Purpose = "confirm"
	PurposeReset   Purpose = "reset"
)

// Payload is what a token carries besides its issue time.
type Payload struct {
	UserID  string
	Purpose Purpose
}

type claims struct {
	UserID  string  `json:"uid"`
	Purpose Purpose `json:"pur"`
	jwt.RegisteredClaims
}

// Service signs tokens with HS256. It keeps no state, so tokens cannot be revoked.
type Service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of s that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	return &Service{secret: s.secret, now: now}
}

func (s *Service) Issue(p Payload) (string, error) {
	c := &claims{
		UserID:  p.UserID,
		Purpose: p.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks signature and age. A token older than maxAge yields ErrExpired.
func (s *Service) Verify(tokenStr string, maxAge time.Duration) (Payload, error) {
	c := &claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return Payload{}, ErrInvalid
	}
	if c.UserID == "" || c.Purpose == "" || c.IssuedAt == nil {
		return Payload{}, ErrInvalid
	}
	if s.now().Sub(c.IssuedAt.Time) > maxAge {
		return Payload{}, ErrExpired
	}
	return Payload{UserID: c.UserID, Purpose: c.Purpose}, nil
}
