// Package session carries the identity of the logged-in user explicitly
// through every call instead of keeping it in ambient storage.
package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barbershop-system/internal/utils"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleBarber  Role = "barber"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleBarber:
		return true
	}
	return false
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRevoked            = errors.New("session has been logged out")
	ErrUnauthenticated    = errors.New("authentication required")
)

type Session struct {
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	StaffID   string    `json:"staff_id,omitempty"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CanManage reports whether the session may change configuration such as
// staff defaults and commission overrides.
func (s Session) CanManage() bool {
	return s.Role == RoleAdmin || s.Role == RoleManager
}

// CanViewStaff lets managers see everyone and barbers only themselves.
func (s Session) CanViewStaff(staffID string) bool {
	return s.CanManage() || (s.StaffID != "" && s.StaffID == staffID)
}

// Account is what the user store returns for a login attempt.
type Account struct {
	UserID       string
	CompanyID    string
	StaffID      string
	Role         Role
	PasswordHash string
}

type AccountStore interface {
	FindActiveAccount(ctx context.Context, username string) (Account, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}

// ErrAccountNotFound is returned by AccountStore when no active user matches.
var ErrAccountNotFound = errors.New("account not found")

type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Manager struct {
	accounts    AccountStore
	revocations Revocations
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewManager(accounts AccountStore, revocations Revocations, secret []byte, ttl time.Duration) *Manager {
	return &Manager{accounts: accounts, revocations: revocations, secret: secret, ttl: ttl, now: time.Now}
}

func (m *Manager) Login(ctx context.Context, username, password string) (Session, string, error) {
	if username == "" || password == "" {
		return Session{}, "", ErrInvalidCredentials
	}
	acc, err := m.accounts.FindActiveAccount(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		return Session{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}

	now := m.now()
	token, claims, err := utils.GenerateToken(m.secret, utils.Claims{
		UserID:    acc.UserID,
		CompanyID: acc.CompanyID,
		StaffID:   acc.StaffID,
		Role:      string(acc.Role),
	}, m.ttl, now)
	if err != nil {
		return Session{}, "", err
	}
	_ = m.accounts.TouchLogin(ctx, acc.UserID, now)

	return fromClaims(claims), token, nil
}

// Logout revokes the token until it would have expired anyway.
func (m *Manager) Logout(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revocations.Revoke(ctx, s.TokenID, ttl)
}

func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	claims, err := utils.ParseToken(m.secret, token)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, ErrRevoked
	}
	return fromClaims(claims), nil
}

func fromClaims(c *utils.Claims) Session {
	s := Session{
		UserID:    c.UserID,
		CompanyID: c.CompanyID,
		StaffID:   c.StaffID,
		Role:      Role(c.Role),
		TokenID:   c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}
