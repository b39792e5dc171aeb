package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/users"
)

// RegisterInput carries validated registration fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service wraps authentication business rules.
type Service struct {
	users     users.RepositoryPort
	cost      int
	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs a new Service. Costs outside bcrypt's accepted range
// fall back to bcrypt.DefaultCost.
func NewService(repo users.RepositoryPort, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{users: repo, cost: cost}
}

// Register creates an account with a bcrypt password hash. The email is
// normalized first; an existing account yields shared.ErrEmailTaken and
// nothing is written.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, error) {
	email := users.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return users.User{}, shared.ErrValidation
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return users.User{}, shared.ErrEmailTaken
	case !errors.Is(err, shared.ErrNotFound):
		return users.User{}, fmt.Errorf("auth: lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword(passwordKey(in.Password), s.cost)
	if err != nil {
		return users.User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := s.users.Create(ctx, users.NewUser{Name: name, Email: email, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return users.User{}, err
		}
		return users.User{}, fmt.Errorf("auth: create user: %w", err)
	}
	return user, nil
}

// Authenticate validates email/password credentials. Unknown accounts and
// wrong passwords both return shared.ErrInvalidCredentials, and both pay for
// one bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.users.FindByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return users.User{}, fmt.Errorf("auth: lookup email: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), passwordKey(password))
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword(passwordKey("moodlog-timing-equaliser"), s.cost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// passwordKey is what bcrypt actually hashes. bcrypt rejects input longer
// than 72 bytes, so the password is reduced to a fixed 44 byte SHA-256
// digest first, base64 encoded to keep NUL bytes out.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
