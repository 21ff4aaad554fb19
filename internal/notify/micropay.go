package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/chemo-it/backoffice/config"
)

const micropayEndpoint = "http://www.micropay.co.il/ExtApi/ScheduleSms.php"

// Notifier dispatches short text messages to the fixed operator phone
// through the Micropay gateway. Every send is best-effort: callers attach
// the outcome as diagnostic metadata and never fail their own operation on
// an SMS error.
type Notifier struct {
	cfg      config.SMSConfig
	http     *http.Client
	log      *zap.Logger
	endpoint string
}

func NewNotifier(cfg config.SMSConfig, log *zap.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
		endpoint: micropayEndpoint,
	}
}

// SendSigningLink messages the operator with the signing page link.
func (n *Notifier) SendSigningLink(ctx context.Context, signURL string) (string, error) {
	return n.send(ctx, "היכנס לקישור הבא: "+signURL)
}

// SendSignedConfirmation messages the operator that the document was signed.
func (n *Notifier) SendSignedConfirmation(ctx context.Context) (string, error) {
	return n.send(ctx, "המסמך נחתם")
}

// send encodes the message to ISO-8859-8, the character set the gateway
// requires for Hebrew, and issues the dispatch request. An unmappable rune
// fails the encode outright; nothing garbled or truncated is ever sent.
func (n *Notifier) send(ctx context.Context, message string) (string, error) {
	encoded, _, err := transform.String(charmap.ISO8859_8.NewEncoder(), message)
	if err != nil {
		return "", fmt.Errorf("encode sms message: %w", err)
	}

	params := url.Values{}
	params.Set("get", "1")
	params.Set("token", n.cfg.Token)
	params.Set("msg", encoded)
	params.Set("list", n.cfg.OperatorPhone)
	params.Set("charset", "iso-8859-8")
	params.Set("from", n.cfg.Sender)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build sms request: %w", err)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		n.log.Warn("sms dispatch failed", zap.Error(err))
		return "", fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	// The gateway's response format is not fully documented; the raw body
	// is passed back for diagnostics.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("send sms: unexpected status %d", resp.StatusCode)
	}
	return string(body), nil
}
