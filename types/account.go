package types

import "time"

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusBlocked   Status = "blocked"
	StatusSuspended Status = "suspended"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBlocked, StatusSuspended:
		return true
	}
	return false
}

// Label returns the display label for the status. An unknown status falls
// back to its raw value so a listing never hard-fails on values introduced
// store-side later.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "פעיל"
	case StatusBlocked:
		return "חסום"
	case StatusSuspended:
		return "מושעה"
	default:
		return string(s)
	}
}

// Gender is the account's registered gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Account represents a managed user account.
type Account struct {
	// ID is the store-assigned unique identifier.
	ID int `json:"id"`

	// FirstName and LastName are the account holder's name.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// IDNumber is the national identity number. It is set at creation and
	// never mutated afterwards.
	IDNumber string `json:"id_number"`

	// Phone is a digits-only phone number.
	Phone string `json:"phone"`

	// Email is the unique login email address.
	Email string `json:"email"`

	// Gender is either "male" or "female".
	Gender Gender `json:"gender"`

	// ForeignWorker marks accounts belonging to foreign workers.
	ForeignWorker bool `json:"foreign_worker"`

	// PasswordHash stores the bcrypt hash of the account password.
	// It is never exposed in API responses and is excluded at the query
	// level from every listing read.
	PasswordHash string `json:"-"`

	// Status is the lifecycle state of the account.
	Status Status `json:"status"`

	// SuspendedUntil is the suspension expiry date. It is non-nil exactly
	// when Status is "suspended".
	SuspendedUntil *string `json:"suspended_until,omitempty"`

	// CreatedAt is the store-assigned creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}
