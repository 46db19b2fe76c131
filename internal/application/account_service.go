package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-book-tracker/internal/domain/repository"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/token"
)

// Notifier sends account emails.
type Notifier interface {
	DispatchConfirmation(ctx context.Context, r mailer.Recipient, token string) error
	DispatchReset(ctx context.Context, r mailer.Recipient, token string) error
	DispatchTest(ctx context.Context, r mailer.Recipient, token string) error
}

type AccountConfig struct {
	ConfirmTTL    time.Duration
	ResetTTL      time.Duration
	SessionTTL    time.Duration
	TestRecipient string
}

type AccountService struct {
	Users    repo.UserRepository
	Sessions repo.SessionStore
	Tokens   *token.Service
	Notifier Notifier
	Logger   *logrus.Logger
	Config   AccountConfig
}

func NewAccountService(users repo.UserRepository, sessions repo.SessionStore, tokens *token.Service, notifier Notifier, logger *logrus.Logger, cfg AccountConfig) *AccountService {
	return &AccountService{Users: users, Sessions: sessions, Tokens: tokens, Notifier: notifier, Logger: logger, Config: cfg}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type RegisterResult struct {
	User        *entity.User
	EmailQueued bool
}

// Register creates an unconfirmed account and sends its confirmation email.
// A failed dispatch does not undo the registration.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.Users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrUsernameTaken):
			return nil, ErrDuplicateUsername
		case errors.Is(err, repo.ErrEmailTaken):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	res := &RegisterResult{User: u}
	if err := s.sendConfirmation(ctx, u); err != nil {
		s.warn(err, u.ID, "confirmation email dispatch failed")
		return res, nil
	}
	res.EmailQueued = true
	return res, nil
}

func (s *AccountService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.Users.GetByUsername(ctx, username); err == nil {
		return ErrDuplicateUsername
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AccountService) sendConfirmation(ctx context.Context, u *entity.User) error {
	tok, err := s.Tokens.Issue(token.Payload{UserID: u.ID, Purpose: token.PurposeConfirm})
	if err != nil {
		return err
	}
	return s.Notifier.DispatchConfirmation(ctx, u, tok)
}

type ConfirmResult struct {
	User             *entity.User
	AlreadyConfirmed bool
}

// Confirm marks the token's account as confirmed. Confirming twice succeeds.
func (s *AccountService) Confirm(ctx context.Context, tok string) (*ConfirmResult, error) {
	u, err := s.userFromToken(ctx, tok, token.PurposeConfirm, s.Config.ConfirmTTL)
	if err != nil {
		return nil, err
	}
	if u.Confirmed {
		return &ConfirmResult{User: u, AlreadyConfirmed: true}, nil
	}
	if err := s.Users.SetConfirmed(ctx, u.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, token.ErrInvalid
		}
		return nil, err
	}
	u.Confirmed = true
	return &ConfirmResult{User: u}, nil
}

func (s *AccountService) userFromToken(ctx context.Context, tok string, purpose token.Purpose, maxAge time.Duration) (*entity.User, error) {
	p, err := s.Tokens.Verify(tok, maxAge)
	if err != nil {
		return nil, err
	}
	if p.Purpose != purpose {
		return nil, token.ErrInvalid
	}
	u, err := s.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, token.ErrInvalid
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

type LoginResult struct {
	User    *entity.User
	Session entity.Session
}

// Login checks credentials and opens a new session, replacing any previous one.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.Confirmed {
		return nil, ErrNotConfirmed
	}
	sess := entity.Session{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		SID:       uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Sessions.Save(ctx, sess, s.Config.SessionTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &LoginResult{User: u, Session: sess}, nil
}

func (s *AccountService) Logout(ctx context.Context, userID string) error {
	return s.Sessions.Delete(ctx, userID)
}

// RequestPasswordReset emails a reset link to confirmed accounts. The result never
// depends on whether the address is registered.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.Confirmed {
		return nil
	}
	tok, err := s.Tokens.Issue(token.Payload{UserID: u.ID, Purpose: token.PurposeReset})
	if err != nil {
		return err
	}
	if err := s.Notifier.DispatchReset(ctx, u, tok); err != nil {
		s.warn(err, u.ID, "reset email dispatch failed")
	}
	return nil
}

func (s *AccountService) CheckResetToken(ctx context.Context, tok string) (*entity.User, error) {
	return s.userFromToken(ctx, tok, token.PurposeReset, s.Config.ResetTTL)
}

// ResetPassword stores a new password for the token's account and ends its session.
func (s *AccountService) ResetPassword(ctx context.Context, tok, password, confirm string) error {
	u, err := s.CheckResetToken(ctx, tok)
	if err != nil {
		return err
	}
	if password == "" || confirm == "" {
		return ErrPasswordRequired
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return token.ErrInvalid
		}
		return err
	}
	if err := s.Sessions.Delete(ctx, u.ID); err != nil {
		s.warn(err, u.ID, "session cleanup after reset failed")
	}
	return nil
}

// SendTestEmail sends a labelled confirmation email to the configured test address.
func (s *AccountService) SendTestEmail(ctx context.Context) (string, error) {
	to := s.Config.TestRecipient
	if to == "" {
		return "", mailer.ErrNotConfigured
	}
	r := mailer.Address{Email: to, ID: "test-email"}
	tok, err := s.Tokens.Issue(token.Payload{UserID: r.Identifier(), Purpose: token.PurposeConfirm})
	if err != nil {
		return "", err
	}
	if err := s.Notifier.DispatchTest(ctx, r, tok); err != nil {
		return "", err
	}
	return to, nil
}

func (s *AccountService) warn(err error, userID, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
	}
}
