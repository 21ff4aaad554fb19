package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chemo-it/backoffice/config"
	"github.com/chemo-it/backoffice/internal/events"
	"github.com/chemo-it/backoffice/internal/storage"
)

// fakeSMSSender records dispatched messages and can be forced to fail.
type fakeSMSSender struct {
	mu            sync.Mutex
	signURLs      []string
	confirmations int
	err           error
}

func (f *fakeSMSSender) SendSigningLink(_ context.Context, signURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.signURLs = append(f.signURLs, signURL)
	return "0", nil
}

func (f *fakeSMSSender) SendSignedConfirmation(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.confirmations++
	return "0", nil
}

// memObjectStore is an in-memory storage.ObjectStore.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (m *memObjectStore) EnsureBucket(context.Context) error { return nil }

func (m *memObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type signingFixture struct {
	router *chi.Mux
	sms    *fakeSMSSender
	store  *memObjectStore
}

func newSigningFixture() *signingFixture {
	cfg := config.SigningConfig{
		Secret:   "test-signing-secret",
		BaseURL:  "https://admin.example.com",
		TokenTTL: time.Hour,
	}
	sms := &fakeSMSSender{}
	store := newMemObjectStore()
	handler := NewSigningHandler(cfg, sms,
		storage.NewSignatures(store), events.NewPublisher(nil, "", zap.NewNop()))

	router := chi.NewRouter()
	router.Route("/notifications", func(r chi.Router) {
		NotificationRouter(r, handler)
	})
	router.Route("/signatures", func(r chi.Router) {
		SignatureRouter(r, handler)
	})
	return &signingFixture{router: router, sms: sms, store: store}
}

// signaturePNG returns a canvas-style data URL holding a real PNG.
func signaturePNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return pngDataPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestSigningLinkThenSaveSignature(t *testing.T) {
	fx := newSigningFixture()

	rec := postJSON(fx.router, "/notifications/signing-link", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var linkResp SigningLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &linkResp))
	assert.True(t, linkResp.OK)
	assert.Empty(t, linkResp.SMSError)

	require.Len(t, fx.sms.signURLs, 1)
	signURL, err := url.Parse(fx.sms.signURLs[0])
	require.NoError(t, err)
	assert.Equal(t, "/sign.html", signURL.Path)
	token := signURL.Query().Get("t")
	require.NotEmpty(t, token)

	body, err := json.Marshal(SaveSignatureRequest{Token: token, Signature: signaturePNG(t)})
	require.NoError(t, err)
	rec = postJSON(fx.router, "/signatures", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var saveResp SaveSignatureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saveResp))
	assert.True(t, saveResp.OK)
	assert.True(t, strings.HasPrefix(saveResp.File, "sig_"))
	assert.True(t, strings.HasSuffix(saveResp.File, ".png"))

	stored, ok := fx.store.objects[saveResp.File]
	require.True(t, ok, "signature object must be persisted")
	_, err = png.Decode(bytes.NewReader(stored))
	assert.NoError(t, err)

	assert.Equal(t, 1, fx.sms.confirmations)
}

func TestSaveSignatureRejectsBadToken(t *testing.T) {
	fx := newSigningFixture()

	for _, token := range []string{"", "not-a-jwt"} {
		body, err := json.Marshal(SaveSignatureRequest{Token: token, Signature: signaturePNG(t)})
		require.NoError(t, err)
		rec := postJSON(fx.router, "/signatures", string(body))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// A token signed with a different secret is rejected too.
	other, err := issueSigningToken(config.SigningConfig{Secret: "other-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	body, err := json.Marshal(SaveSignatureRequest{Token: other, Signature: signaturePNG(t)})
	require.NoError(t, err)
	rec := postJSON(fx.router, "/signatures", string(body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, fx.store.objects)
}

func TestSaveSignatureRejectsMalformedImages(t *testing.T) {
	fx := newSigningFixture()
	token, err := issueSigningToken(config.SigningConfig{Secret: "test-signing-secret", TokenTTL: time.Hour})
	require.NoError(t, err)

	payloads := []string{
		"not a data url",
		"data:image/jpeg;base64,AAAA",
		pngDataPrefix + "###not-base64###",
		pngDataPrefix + base64.StdEncoding.EncodeToString([]byte("plain text, not a png")),
	}
	for _, payload := range payloads {
		body, err := json.Marshal(SaveSignatureRequest{Token: token, Signature: payload})
		require.NoError(t, err)
		rec := postJSON(fx.router, "/signatures", string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %q", payload)
	}
	assert.Empty(t, fx.store.objects)
}

func TestSMSFailureDoesNotFailSigningLink(t *testing.T) {
	fx := newSigningFixture()
	fx.sms.err = errors.New("gateway unreachable")

	rec := postJSON(fx.router, "/notifications/signing-link", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SigningLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "gateway unreachable", resp.SMSError)
}
