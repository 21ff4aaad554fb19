package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chemo-it/backoffice/internal/rowstore"
	"github.com/chemo-it/backoffice/types"
)

const accountsTable = "/users"

// listColumns is the projection used for every listing read. password_hash
// is excluded here, at the query level, so the hash never crosses the wire
// for reads that do not need it.
const listColumns = "id,first_name,last_name,id_number,email,phone,gender,foreign_worker,status,suspended_until,created_at"

// Gateway is the narrow row-store surface the repository depends on.
type Gateway interface {
	Execute(ctx context.Context, method, path string, body any, returnRepresentation bool) (rowstore.Result, error)
}

// AccountRepository handles account persistence through the row store.
type AccountRepository struct {
	gateway Gateway
}

func NewAccountRepository(gateway Gateway) *AccountRepository {
	return &AccountRepository{gateway: gateway}
}

// accountRow is the wire shape of an account, including the password hash
// for the write and credential-check paths.
type accountRow struct {
	ID             int          `json:"id,omitempty"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	IDNumber       string       `json:"id_number"`
	Phone          string       `json:"phone"`
	Email          string       `json:"email"`
	Gender         types.Gender `json:"gender"`
	ForeignWorker  bool         `json:"foreign_worker"`
	PasswordHash   string       `json:"password_hash,omitempty"`
	Status         types.Status `json:"status"`
	SuspendedUntil *string      `json:"suspended_until,omitempty"`
	CreatedAt      time.Time    `json:"created_at,omitempty"`
}

func (row accountRow) toAccount() types.Account {
	return types.Account{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		IDNumber:       row.IDNumber,
		Phone:          row.Phone,
		Email:          row.Email,
		Gender:         row.Gender,
		ForeignWorker:  row.ForeignWorker,
		PasswordHash:   row.PasswordHash,
		Status:         row.Status,
		SuspendedUntil: row.SuspendedUntil,
		CreatedAt:      row.CreatedAt,
	}
}

// List returns all accounts, newest first, without password hashes.
func (r *AccountRepository) List(ctx context.Context) ([]types.Account, error) {
	path := accountsTable + "?select=" + listColumns + "&order=created_at.desc"
	result, err := r.gateway.Execute(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	if result.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("row store list: unexpected status %d", result.StatusCode)
	}

	accounts := []types.Account{}
	if err := json.Unmarshal(result.Data, &accounts); err != nil {
		return nil, fmt.Errorf("decode account list: %w", err)
	}
	return accounts, nil
}

// GetByEmail fetches one account by exact email match, including its
// password hash and status. It exists for the credential service only.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	path := accountsTable + "?email=eq." + url.QueryEscape(email)
	result, err := r.gateway.Execute(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return types.Account{}, err
	}
	if result.StatusCode != http.StatusOK {
		return types.Account{}, fmt.Errorf("row store get: unexpected status %d", result.StatusCode)
	}

	var rows []accountRow
	if err := json.Unmarshal(result.Data, &rows); err != nil {
		return types.Account{}, fmt.Errorf("decode account: %w", err)
	}
	if len(rows) == 0 {
		return types.Account{}, ErrNotFound
	}
	return rows[0].toAccount(), nil
}

// Insert creates a new account row and returns it as stored, id and
// creation timestamp assigned by the store.
func (r *AccountRepository) Insert(ctx context.Context, account types.Account) (types.Account, error) {
	row := accountRow{
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		IDNumber:      account.IDNumber,
		Phone:         account.Phone,
		Email:         account.Email,
		Gender:        account.Gender,
		ForeignWorker: account.ForeignWorker,
		PasswordHash:  account.PasswordHash,
		Status:        account.Status,
	}

	result, err := r.gateway.Execute(ctx, http.MethodPost, accountsTable, row, true)
	if err != nil {
		return types.Account{}, err
	}
	if result.StatusCode != http.StatusCreated {
		if isDuplicateKey(result) {
			return types.Account{}, ErrConflict
		}
		return types.Account{}, fmt.Errorf("row store insert: unexpected status %d", result.StatusCode)
	}

	var rows []accountRow
	if err := json.Unmarshal(result.Data, &rows); err != nil {
		return types.Account{}, fmt.Errorf("decode created account: %w", err)
	}
	if len(rows) == 0 {
		return types.Account{}, fmt.Errorf("row store insert: empty representation")
	}
	return rows[0].toAccount(), nil
}

// Patch applies a partial update to the account with the given id. The id
// has been validated as a positive integer by the caller before it is built
// into the filter expression.
func (r *AccountRepository) Patch(ctx context.Context, id int, fields map[string]any) error {
	path := fmt.Sprintf("%s?id=eq.%d", accountsTable, id)
	result, err := r.gateway.Execute(ctx, http.MethodPatch, path, fields, false)
	if err != nil {
		return err
	}
	if result.StatusCode != http.StatusOK {
		if isDuplicateKey(result) {
			return ErrConflict
		}
		return fmt.Errorf("row store patch: unexpected status %d", result.StatusCode)
	}
	return nil
}

// Delete removes the account row with the given id. The store returns
// 204 No Content on success, not 200.
func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	path := fmt.Sprintf("%s?id=eq.%d", accountsTable, id)
	result, err := r.gateway.Execute(ctx, http.MethodDelete, path, nil, false)
	if err != nil {
		return err
	}
	if result.StatusCode != http.StatusNoContent {
		return fmt.Errorf("row store delete: unexpected status %d", result.StatusCode)
	}
	return nil
}

// isDuplicateKey reports whether a failed write was caused by a uniqueness
// violation. The store signals it either with a 409 or with a "duplicate
// key" message in the error body.
func isDuplicateKey(result rowstore.Result) bool {
	if result.StatusCode == http.StatusConflict {
		return true
	}
	return strings.Contains(result.ErrorMessage(), "duplicate key")
}
