package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/workflow"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AccountInput carries registration and admin-creation fields.
type AccountInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

func (in AccountInput) normalized() AccountInput {
	return AccountInput{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Password: in.Password,
	}
}

func validateAccount(in AccountInput) error {
	if in.FullName == "" || in.Email == "" || in.Phone == "" {
		return &workflow.ValidationError{Message: "full name, email, and phone are required"}
	}
	if !emailPattern.MatchString(in.Email) {
		return &workflow.ValidationError{Field: "email", Message: "invalid email format"}
	}
	if len(strings.TrimSpace(in.Password)) < 8 || !utf8.ValidString(in.Password) {
		return &workflow.ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// Register creates an investor account.
func (s *Service) Register(ctx context.Context, in AccountInput) (models.User, error) {
	in = in.normalized()
	if err := validateAccount(in); err != nil {
		return models.User{}, err
	}
	return s.createUser(ctx, in, false)
}

// Login checks credentials. With adminOnly set, investors are refused as if
// the credentials were wrong.
func (s *Service) Login(ctx context.Context, email, password string, adminOnly bool) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return models.User{}, &workflow.ValidationError{Message: "missing email or password"}
	}
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if adminOnly && !user.IsAdmin {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// CreateAdmin creates another administrator. Phone numbers must be digits
// only, at least 7 long, and not already registered.
func (s *Service) CreateAdmin(ctx context.Context, p auth.Principal, in AccountInput) (models.User, error) {
	if err := workflow.Authorize(p, models.CapManageAdmins); err != nil {
		return models.User{}, err
	}
	in = in.normalized()
	if in.FullName == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return models.User{}, &workflow.ValidationError{Message: "all fields are required"}
	}
	if err := validateAccount(in); err != nil {
		return models.User{}, err
	}
	if !digitsOnly(in.Phone) || len(in.Phone) < 7 {
		return models.User{}, &workflow.ValidationError{Field: "phone", Message: "invalid phone number"}
	}
	if _, err := s.store.FindByPhone(ctx, in.Phone); err == nil {
		return models.User{}, fmt.Errorf("%w: phone number already registered", storage.ErrAlreadyExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, err
	}

	user, err := s.createUser(ctx, in, true)
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("admin created", zap.Int64("admin_id", user.ID), zap.Int64("by", p.UserID))
	return user, nil
}

// EnsureBootstrapAdmin creates the first administrator if its email is not
// registered yet. It is the startup path for an empty system.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, in AccountInput) error {
	in = in.normalized()
	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := validateAccount(in); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	user, err := s.createUser(ctx, in, true)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", zap.Int64("admin_id", user.ID), zap.String("email", user.Email))
	return nil
}

func (s *Service) createUser(ctx context.Context, in AccountInput, admin bool) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		IsAdmin:      admin,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.User{}, fmt.Errorf("%w: email already registered", storage.ErrAlreadyExists)
	}
	return user, err
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
