package push

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

const (
	APNsProductionURL = "https://api.push.apple.com"
	APNsSandboxURL    = "https://api.sandbox.push.apple.com"

	// provider tokens are valid for an hour; refresh well before that
	apnsTokenTTL = 50 * time.Minute
)

type APNsConfig struct {
	KeyID    string
	TeamID   string
	BundleID string
	KeyPath  string
	Sandbox  bool
	// BaseURL overrides the Apple host.
	BaseURL string
}

// APNs sends iOS notifications with token-based (.p8) authentication.
type APNs struct {
	cfg  APNsConfig
	key  *ecdsa.PrivateKey
	http *http.Client
	Now  func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

func NewAPNs(cfg APNsConfig) (*APNs, error) {
	if cfg.KeyID == "" || cfg.TeamID == "" || cfg.BundleID == "" || cfg.KeyPath == "" {
		return nil, errors.New("apns key id, team id, bundle id and key path are required")
	}
	pem, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "read apns key")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, errors.Wrap(err, "parse apns key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = APNsProductionURL
		if cfg.Sandbox {
			cfg.BaseURL = APNsSandboxURL
		}
	}
	return &APNs{
		cfg:  cfg,
		key:  key,
		http: &http.Client{Timeout: 10 * time.Second},
		Now:  time.Now,
	}, nil
}

func (a *APNs) providerToken() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.Now()
	if a.token != "" && now.Sub(a.issuedAt) < apnsTokenTTL {
		return a.token, nil
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": a.cfg.TeamID,
		"iat": now.Unix(),
	})
	tok.Header["kid"] = a.cfg.KeyID
	signed, err := tok.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "sign apns provider token")
	}
	a.token, a.issuedAt = signed, now
	return signed, nil
}

func apnsPayload(n domain.Notification) ([]byte, error) {
	payload := map[string]any{}
	for k, v := range n.Data {
		payload[k] = v
	}
	payload["aps"] = map[string]any{
		"alert": map[string]string{"title": n.Title, "body": n.Body},
		"sound": "default",
		"badge": 1,
	}
	return json.Marshal(payload)
}

func (a *APNs) Send(ctx context.Context, token string, n domain.Notification) error {
	bearer, err := a.providerToken()
	if err != nil {
		return err
	}
	body, err := apnsPayload(n)
	if err != nil {
		return errors.Wrap(err, "encode apns payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/3/device/"+token, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build apns request")
	}
	req.Header.Set("authorization", "bearer "+bearer)
	req.Header.Set("apns-topic", a.cfg.BundleID)
	req.Header.Set("apns-priority", "10")
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("content-type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "apns send")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("apns status %d: %s", resp.StatusCode, bytes.TrimSpace(reason))
	}
	return nil
}
