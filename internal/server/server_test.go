package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/blob"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/db/sqldb"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type cannedResponder struct{ answer string }

func (r cannedResponder) Name() string { return "canned" }

func (r cannedResponder) Respond(context.Context, string, []ai.Turn) (string, error) {
	return r.answer, nil
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []domain.Outbound
}

func (t *recordingTransport) Send(_ context.Context, msg domain.Outbound) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return int64(500 + len(t.sent)), nil
}

func (t *recordingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

type testEnv struct {
	server    *Server
	store     *sqldb.Client
	transport *recordingTransport
	hub       *Hub
	uploads   *blob.Local
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	cfg := sqldb.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "server.db")
	store, err := sqldb.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	notices, err := i18n.NewNotices("en")
	require.NoError(t, err)
	uploads, err := blob.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	hub := NewHub()
	transport := &recordingTransport{}
	delivery := core.NewDelivery(store, nil, hub, notices)
	arbiter := core.NewArbiter(store, core.NewDetector(nil), notices, core.DefaultModeTimeout)
	relay := core.NewRelay(store, arbiter, cannedResponder{answer: "Happy to help"}, transport, uploads, delivery, notices)

	srv := New(Config{APIKey: apiKey, MaxUploadBytes: 1024}, Services{
		Relay:   relay,
		Greeter: core.NewGreeter(store, notices, delivery),
		Arbiter: arbiter,
		Store:   store,
		Hub:     hub,
		Uploads: uploads,
		Ping:    store.Ping,
	})
	return &testEnv{server: srv, store: store, transport: transport, hub: hub, uploads: uploads}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "secret")
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, "secret")

	rec := env.do(t, http.MethodGet, "/support_mode/u1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/support_mode/u1", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessage_AnsweredByAI(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodPost, "/send_message", SendMessageRequest{UserID: "U1", Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SendMessageResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, domain.ModeAI, resp.Mode)
	assert.Len(t, resp.MessageIDs, 2)
	assert.Nil(t, resp.TelegramMessageID)
	assert.Zero(t, env.transport.count())
}

func TestSendMessage_EscalationForwards(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodPost, "/send_message", SendMessageRequest{
		UserID: "U1", UserName: "Anna", Message: "I want to talk to a human agent",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SendMessageResponse](t, rec)
	assert.Equal(t, domain.ModeHuman, resp.Mode)
	require.NotNil(t, resp.TelegramMessageID)
	assert.Equal(t, 1, env.transport.count())

	userID, err := env.store.ResolveCorrelation(context.Background(), *resp.TelegramMessageID)
	require.NoError(t, err)
	assert.Equal(t, "U1", userID)
}

func TestSendMessage_MissingFields(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodPost, "/send_message", SendMessageRequest{UserID: "U1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "required")
}

func TestSendMessage_MultipartPhoto(t *testing.T) {
	env := newTestEnv(t, "")
	body, contentType := multipartBody(t, map[string]string{
		"user_id": "U1", "message": "need a manager, see screenshot",
	}, "shot.png", pngHeader)

	req := httptest.NewRequest(http.MethodPost, "/send_message", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SendMessageResponse](t, rec)
	require.True(t, strings.HasPrefix(resp.PhotoURL, "/uploads/"), resp.PhotoURL)
	require.Len(t, env.transport.sent, 1)
	assert.Equal(t, domain.AttachmentSingle, env.transport.sent[0].Attachment.Kind)

	served := env.do(t, http.MethodGet, resp.PhotoURL, nil)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngHeader, served.Body.Bytes())
}

func TestSendMessage_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t, "")
	body, contentType := multipartBody(t, map[string]string{
		"user_id": "U1", "message": "operator please",
	}, "notes.png", []byte("plain text pretending to be a picture"))

	req := httptest.NewRequest(http.MethodPost, "/send_message", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(env.uploads.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, env.transport.count())
}

func TestSendMessage_RejectsOversizedPhoto(t *testing.T) {
	env := newTestEnv(t, "")
	big := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	body, contentType := multipartBody(t, map[string]string{
		"user_id": "U1", "message": "operator, look at this",
	}, "huge.png", big)

	req := httptest.NewRequest(http.MethodPost, "/send_message", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "too large")

	entries, err := os.ReadDir(env.uploads.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, found, err := env.store.ModeState(context.Background(), "U1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, env.transport.count())
}

func TestSendMessage_RejectsTooManyPhotos(t *testing.T) {
	env := newTestEnv(t, "")
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("user_id", "U1"))
	require.NoError(t, w.WriteField("message", "operator, see these"))
	for i := 0; i <= domain.MaxPhotos; i++ {
		part, err := w.CreateFormFile("photo", "shot.png")
		require.NoError(t, err)
		_, err = part.Write(pngHeader)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/send_message", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	entries, err := os.ReadDir(env.uploads.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, found, err := env.store.ModeState(context.Background(), "U1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, env.transport.count())
}

func TestUploadNotFound(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/uploads/missing.png", nil).Code)
}

func TestRegisterAndCheckDevice(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/register_device", RegisterDeviceRequest{UserID: "U1", Platform: "android"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/register_device", RegisterDeviceRequest{UserID: "U1", Platform: "windows", Token: "t"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	check := decode[CheckDeviceResponse](t, env.do(t, http.MethodGet, "/check_device/U1", nil))
	assert.False(t, check.HasDevice)

	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodPost, "/register_device", RegisterDeviceRequest{
			UserID: "U1", Platform: "ios", APNsToken: "apns-1", DeviceID: "phone",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	check = decode[CheckDeviceResponse](t, env.do(t, http.MethodGet, "/check_device/U1", nil))
	assert.True(t, check.HasDevice)
	assert.Equal(t, 1, check.Devices)
	assert.Equal(t, []domain.Platform{domain.PlatformIOS}, check.Platforms)
}

func TestMessageHistory_GreetsOncePerDay(t *testing.T) {
	env := newTestEnv(t, "")

	first := decode[HistoryResponse](t, env.do(t, http.MethodGet, "/message_history/U1?user_name=Anna", nil))
	require.Len(t, first.Messages, 1)
	assert.Equal(t, domain.DirectionSupport, first.Messages[0].Direction)
	assert.Contains(t, first.Messages[0].Text, "Anna")

	second := decode[HistoryResponse](t, env.do(t, http.MethodGet, "/message_history/U1", nil))
	assert.Len(t, second.Messages, 1)

	rec := env.do(t, http.MethodGet, "/message_history/U1?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupportMode(t *testing.T) {
	env := newTestEnv(t, "")

	got := decode[SupportModeResponse](t, env.do(t, http.MethodGet, "/support_mode/U1", nil))
	assert.Equal(t, domain.ModeAI, got.Mode)
	assert.Equal(t, int64(300), got.TimeoutSeconds)

	rec := env.do(t, http.MethodPost, "/support_mode/U1", SupportModeRequest{Mode: "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/support_mode/U1", SupportModeRequest{Mode: "human"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got = decode[SupportModeResponse](t, env.do(t, http.MethodGet, "/support_mode/U1", nil))
	assert.Equal(t, domain.ModeHuman, got.Mode)
	assert.NotNil(t, got.LastUserMessageAt)
	assert.NotNil(t, got.SwitchedAt)
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:5000", Config{}.Addr())
	assert.Equal(t, "127.0.0.1:8080", Config{Host: "127.0.0.1", Port: 8080}.Addr())
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	env.server.cfg.Host, env.server.cfg.Port = "127.0.0.1", port

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
