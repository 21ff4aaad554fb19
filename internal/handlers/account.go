package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chemo-it/backoffice/internal/services"
	"github.com/chemo-it/backoffice/types"
)

// AccountHandler provides the administrative account endpoints.
type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRouter registers account routes on the given router. The caller is
// expected to have already applied the session middleware.
func AccountRouter(r chi.Router, accounts *services.AccountService) {
	handler := NewAccountHandler(accounts)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{accountID}", func(r chi.Router) {
		r.Put("/", handler.Edit)
		r.Delete("/", handler.Delete)
		r.Post("/block", handler.Block)
		r.Post("/suspend", handler.Suspend)
	})
}

// List returns all accounts, newest first. Password hashes are excluded at
// the query level and the Account type never serializes them regardless.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load accounts")
		return
	}
	writeJSON(w, http.StatusOK, ListAccountsResponse{Accounts: accounts})
}

// Create validates and creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAccountInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	account, err := h.accounts.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AccountResponse{Account: account})
}

// Edit updates an account's profile fields.
func (h *AccountHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid account id")
		return
	}

	var req services.EditAccountInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.accounts.Edit(r.Context(), id, req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Block sets the account status to blocked.
func (h *AccountHandler) Block(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid account id")
		return
	}

	if err := h.accounts.Block(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Suspend sets the account status to suspended until a future date.
func (h *AccountHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid account id")
		return
	}

	var req SuspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.accounts.Suspend(r.Context(), id, req.Until); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Delete permanently removes an account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid account id")
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

type ListAccountsResponse struct {
	Accounts []types.Account `json:"accounts"`
}

type AccountResponse struct {
	Account types.Account `json:"account"`
}

type SuspendRequest struct {
	Until string `json:"until"`
}
