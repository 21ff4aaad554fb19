package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chemo-it/backoffice/config"
	"github.com/chemo-it/backoffice/internal/events"
	"github.com/chemo-it/backoffice/internal/storage"
)

const (
	signingSubject = "sign"
	pngDataPrefix  = "data:image/png;base64,"
)

// SMSSender is the outbound notification capability the signing workflow
// depends on.
type SMSSender interface {
	SendSigningLink(ctx context.Context, signURL string) (string, error)
	SendSignedConfirmation(ctx context.Context) (string, error)
}

// SigningHandler drives the signing workflow: an administrator requests a
// signing link (dispatched by SMS to the operator), and the signing page
// posts the captured signature back with the link's token as its
// authorization.
type SigningHandler struct {
	cfg        config.SigningConfig
	notifier   SMSSender
	signatures *storage.Signatures
	events     *events.Publisher
}

func NewSigningHandler(
	cfg config.SigningConfig,
	notifier SMSSender,
	signatures *storage.Signatures,
	publisher *events.Publisher,
) *SigningHandler {
	return &SigningHandler{
		cfg:        cfg,
		notifier:   notifier,
		signatures: signatures,
		events:     publisher,
	}
}

// NotificationRouter registers the session-gated signing-link route.
func NotificationRouter(r chi.Router, handler *SigningHandler) {
	r.Post("/signing-link", handler.SendSigningLink)
}

// SignatureRouter registers the public signature-save route. The signing
// token carried in the request is the authorization.
func SignatureRouter(r chi.Router, handler *SigningHandler) {
	r.Post("/", handler.SaveSignature)
}

// SendSigningLink issues a short-lived signing token, builds the signing
// page link and SMSes it to the operator. The SMS outcome is diagnostic
// metadata: a dispatch failure does not fail this request.
func (h *SigningHandler) SendSigningLink(w http.ResponseWriter, r *http.Request) {
	token, err := issueSigningToken(h.cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create signing link")
		return
	}

	signURL := strings.TrimRight(h.cfg.BaseURL, "/") + "/sign.html?t=" + token

	resp := SigningLinkResponse{OK: true}
	result, smsErr := h.notifier.SendSigningLink(r.Context(), signURL)
	resp.SMSResult = result
	if smsErr != nil {
		resp.SMSError = smsErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveSignature verifies the signing token, validates and stores the
// signature PNG, and sends a best-effort confirmation SMS.
func (h *SigningHandler) SaveSignature(w http.ResponseWriter, r *http.Request) {
	var req SaveSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := parseSigningToken(req.Token, h.cfg.Secret); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid signing token")
		return
	}

	data, err := decodeSignaturePNG(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.signatures.SavePNG(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save signature")
		return
	}

	h.events.Emit(r.Context(), events.DocumentSigned, map[string]any{"file": key})

	resp := SaveSignatureResponse{OK: true, File: key}
	result, smsErr := h.notifier.SendSignedConfirmation(r.Context())
	resp.SMSResult = result
	if smsErr != nil {
		resp.SMSError = smsErr.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// decodeSignaturePNG turns a canvas data URL into validated PNG bytes.
// Strict base64 decoding catches corrupt payloads; the image decode
// rejects anything that is not structurally a PNG.
func decodeSignaturePNG(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, pngDataPrefix) {
		return nil, errors.New("invalid image data")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, pngDataPrefix))
	if err != nil {
		return nil, errors.New("base64 decode failed")
	}

	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		return nil, errors.New("invalid image content")
	}
	return data, nil
}

func issueSigningToken(cfg config.SigningConfig) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   signingSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

func parseSigningToken(tokenString, secret string) error {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid || claims.Subject != signingSubject {
		return errors.New("invalid token")
	}
	return nil
}

type SigningLinkResponse struct {
	OK        bool   `json:"ok"`
	SMSResult string `json:"sms_result,omitempty"`
	SMSError  string `json:"sms_error,omitempty"`
}

type SaveSignatureRequest struct {
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

type SaveSignatureResponse struct {
	OK        bool   `json:"ok"`
	File      string `json:"file"`
	SMSResult string `json:"sms_result,omitempty"`
	SMSError  string `json:"sms_error,omitempty"`
}
