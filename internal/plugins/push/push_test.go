package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

var testNotification = domain.Notification{
	Title: "support reply",
	Body:  "We are on it",
	Data:  map[string]string{"type": "support_reply", "user_id": "U1", "message": "We are on it"},
}

type recordingSender struct {
	mu     sync.Mutex
	tokens []string
	fail   map[string]bool
}

func (s *recordingSender) Send(_ context.Context, token string, _ domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)
	if s.fail[token] {
		return errors.New("unregistered")
	}
	return nil
}

func TestDispatcher_RoutesByPlatformAndCounts(t *testing.T) {
	android := &recordingSender{fail: map[string]bool{"stale": true}}
	ios := &recordingSender{}
	d := NewDispatcher(android, ios)

	result := d.Notify(context.Background(), []domain.DeviceToken{
		{Platform: domain.PlatformAndroid, Token: "a1"},
		{Platform: domain.PlatformAndroid, Token: "stale"},
		{Platform: domain.PlatformIOS, Token: "i1"},
	}, testNotification)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "unregistered")
	assert.ElementsMatch(t, []string{"a1", "stale"}, android.tokens)
	assert.Equal(t, []string{"i1"}, ios.tokens)
}

func TestDispatcher_MissingSenderCountsAsFailure(t *testing.T) {
	d := NewDispatcher(nil, nil)
	result := d.Notify(context.Background(), []domain.DeviceToken{{Platform: domain.PlatformIOS, Token: "i1"}}, testNotification)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Failed)
}

func TestFCM_SendsV1Message(t *testing.T) {
	var body struct {
		Message struct {
			Token        string            `json:"token"`
			Notification map[string]string `json:"notification"`
			Data         map[string]string `json:"data"`
			Android      struct {
				Priority string `json:"priority"`
			} `json:"android"`
		} `json:"message"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/demo/messages:send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/demo/messages/1"}`))
	}))
	defer server.Close()

	sender, err := NewFCM(context.Background(), FCMConfig{ProjectID: "demo"},
		option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), "device-token", testNotification))

	assert.Equal(t, "device-token", body.Message.Token)
	assert.Equal(t, "support reply", body.Message.Notification["title"])
	assert.Equal(t, "support_reply", body.Message.Data["type"])
	assert.Equal(t, "HIGH", body.Message.Android.Priority)
}

func TestNewFCM_RequiresProject(t *testing.T) {
	_, err := NewFCM(context.Background(), FCMConfig{})
	assert.Error(t, err)
}

func writeTestKey(t *testing.T) (string, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "AuthKey.p8")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))
	return path, key
}

func TestAPNs_SendsSignedAlert(t *testing.T) {
	keyPath, key := writeTestKey(t)
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/device/ios-token", r.URL.Path)
		assert.Equal(t, "com.smile.app", r.Header.Get("apns-topic"))
		assert.Equal(t, "alert", r.Header.Get("apns-push-type"))

		bearer := strings.TrimPrefix(r.Header.Get("authorization"), "bearer ")
		parsed, err := jwt.Parse(bearer, func(tok *jwt.Token) (any, error) {
			assert.Equal(t, "KEY123", tok.Header["kid"])
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		require.NoError(t, err)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "TEAM42", claims["iss"])

		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer server.Close()

	sender, err := NewAPNs(APNsConfig{KeyID: "KEY123", TeamID: "TEAM42", BundleID: "com.smile.app", KeyPath: keyPath, BaseURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), "ios-token", testNotification))

	aps := payload["aps"].(map[string]any)
	alert := aps["alert"].(map[string]any)
	assert.Equal(t, "We are on it", alert["body"])
	assert.EqualValues(t, 1, aps["badge"])
	assert.Equal(t, "U1", payload["user_id"])
}

func TestAPNs_ReusesProviderToken(t *testing.T) {
	keyPath, _ := writeTestKey(t)
	sender, err := NewAPNs(APNsConfig{KeyID: "K", TeamID: "T", BundleID: "B", KeyPath: keyPath})
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sender.Now = func() time.Time { return now }

	first, err := sender.providerToken()
	require.NoError(t, err)
	now = now.Add(10 * time.Minute)
	second, err := sender.providerToken()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(time.Hour)
	third, err := sender.providerToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, APNsProductionURL, sender.cfg.BaseURL)
}

func TestAPNs_ErrorStatus(t *testing.T) {
	keyPath, _ := writeTestKey(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"reason":"Unregistered"}`))
	}))
	defer server.Close()

	sender, err := NewAPNs(APNsConfig{KeyID: "K", TeamID: "T", BundleID: "B", KeyPath: keyPath, BaseURL: server.URL})
	require.NoError(t, err)
	err = sender.Send(context.Background(), "ios-token", testNotification)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unregistered")
}
