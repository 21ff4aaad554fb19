package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chemo-it/backoffice/internal/events"
	"github.com/chemo-it/backoffice/types"
)

const minPasswordLength = 8

// dateFormat is the wire format for suspension dates.
const dateFormat = "2006-01-02"

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	List(ctx context.Context) ([]types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Insert(ctx context.Context, account types.Account) (types.Account, error)
	Patch(ctx context.Context, id int, fields map[string]any) error
	Delete(ctx context.Context, id int) error
}

// AccountService owns account validation, uniqueness handling and the
// lifecycle state machine between active, blocked and suspended.
type AccountService struct {
	repo   AccountRepository
	events *events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewAccountService(repo AccountRepository, publisher *events.Publisher, log *zap.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		events: publisher,
		log:    log,
		now:    time.Now,
	}
}

// CreateAccountInput carries the fields of an administrative create.
type CreateAccountInput struct {
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	IDNumber      string       `json:"id_number"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email"`
	Gender        types.Gender `json:"gender"`
	ForeignWorker bool         `json:"foreign_worker"`
	Password      string       `json:"password"`
}

func (in CreateAccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required),
		validation.Field(&in.LastName, validation.Required),
		validation.Field(&in.IDNumber, validation.Required),
		validation.Field(&in.Phone, validation.Required, is.Digit),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Gender, validation.Required, validation.In(types.GenderMale, types.GenderFemale)),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, 0)),
	)
}

// EditAccountInput carries the editable profile fields. The identity number
// is immutable after creation and the password is not editable through this
// path, so neither appears here.
type EditAccountInput struct {
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email"`
	Gender        types.Gender `json:"gender"`
	ForeignWorker bool         `json:"foreign_worker"`
}

func (in EditAccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required),
		validation.Field(&in.LastName, validation.Required),
		validation.Field(&in.Phone, validation.Required, is.Digit),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Gender, validation.Required, validation.In(types.GenderMale, types.GenderFemale)),
	)
}

// List returns all accounts, newest first. Hashes are excluded by the
// repository at the query level, not filtered here.
func (s *AccountService) List(ctx context.Context) ([]types.Account, error) {
	return s.repo.List(ctx)
}

// Create validates the input, hashes the password and inserts a new active
// account. A uniqueness violation surfaces as store.ErrConflict; the
// returned account carries no password hash.
func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (types.Account, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	// The password is deliberately not trimmed: leading or trailing spaces
	// may be intentional.

	if err := in.Validate(); err != nil {
		return types.Account{}, &ValidationError{Err: err}
	}

	// bcrypt generates a fresh random salt on every call; a caller-supplied
	// or fixed salt is not even expressible through this API.
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.Insert(ctx, types.Account{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		IDNumber:      in.IDNumber,
		Phone:         in.Phone,
		Email:         in.Email,
		Gender:        in.Gender,
		ForeignWorker: in.ForeignWorker,
		PasswordHash:  string(hash),
		Status:        types.StatusActive,
	})
	if err != nil {
		return types.Account{}, err
	}

	created.PasswordHash = ""
	s.events.Emit(ctx, events.AccountCreated, map[string]any{"id": created.ID})
	return created, nil
}

// Edit updates the profile fields of an account. Status and suspension
// expiry are untouched by this operation.
func (s *AccountService) Edit(ctx context.Context, id int, in EditAccountInput) error {
	if err := validateID(id); err != nil {
		return err
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)

	if err := in.Validate(); err != nil {
		return &ValidationError{Err: err}
	}

	return s.repo.Patch(ctx, id, map[string]any{
		"first_name":     in.FirstName,
		"last_name":      in.LastName,
		"phone":          in.Phone,
		"email":          in.Email,
		"gender":         in.Gender,
		"foreign_worker": in.ForeignWorker,
	})
}

// Block sets the account status to blocked. The suspension expiry is
// unconditionally cleared: a blocked account must never retain a stale
// future suspension date.
func (s *AccountService) Block(ctx context.Context, id int) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := s.repo.Patch(ctx, id, map[string]any{
		"status":          types.StatusBlocked,
		"suspended_until": nil,
	})
	if err != nil {
		return err
	}

	s.events.Emit(ctx, events.AccountBlocked, map[string]any{"id": id})
	return nil
}

// Suspend sets the account status to suspended until the given date. The
// date must be a valid YYYY-MM-DD value strictly later than today, compared
// at day granularity in UTC.
func (s *AccountService) Suspend(ctx context.Context, id int, until string) error {
	if err := validateID(id); err != nil {
		return err
	}

	until = strings.TrimSpace(until)
	date, err := time.Parse(dateFormat, until)
	if err != nil {
		return fieldError("suspended_until", "must be a valid date (YYYY-MM-DD)")
	}
	if !date.After(dateOnly(s.now())) {
		return fieldError("suspended_until", "must be a future date")
	}

	err = s.repo.Patch(ctx, id, map[string]any{
		"status":          types.StatusSuspended,
		"suspended_until": until,
	})
	if err != nil {
		return err
	}

	s.events.Emit(ctx, events.AccountSuspended, map[string]any{"id": id, "until": until})
	return nil
}

// Delete permanently removes the account. There is no soft delete.
func (s *AccountService) Delete(ctx context.Context, id int) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Emit(ctx, events.AccountDeleted, map[string]any{"id": id})
	return nil
}

// validateID rejects non-positive identifiers before they can reach a store
// filter expression. Handlers coerce the raw input to an int first, so
// injection-shaped values never make it past the parse.
func validateID(id int) error {
	if id <= 0 {
		return fieldError("id", "must be a positive integer")
	}
	return nil
}

// dateOnly truncates a time to its UTC calendar day. All suspension-date
// comparisons happen in UTC at day granularity.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
