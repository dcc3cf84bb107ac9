package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

type memStore struct {
	mu           sync.Mutex
	nextID       int64
	messages     []domain.Message
	correlations map[int64]string
	devices      []domain.DeviceToken
	modes        map[string]domain.ModeState
	greetings    map[string]bool

	modeErr    error
	resolveErr error
	saveErr    error
}

func newMemStore() *memStore {
	return &memStore{
		correlations: map[int64]string{},
		modes:        map[string]domain.ModeState{},
		greetings:    map[string]bool{},
	}
}

func (s *memStore) SaveMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.nextID++
	m.ID = s.nextID
	s.messages = append(s.messages, *m)
	return nil
}

func (s *memStore) History(_ context.Context, userID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) SaveCorrelation(_ context.Context, c domain.Correlation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlations[c.ExternalMessageID] = c.UserID
	return nil
}

func (s *memStore) ResolveCorrelation(_ context.Context, externalID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	userID, ok := s.correlations[externalID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return userID, nil
}

func (s *memStore) SaveDeviceToken(_ context.Context, t domain.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, t)
	return nil
}

func (s *memStore) DeviceTokens(_ context.Context, userID string) (ret []domain.DeviceToken, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.devices {
		if t.UserID == userID {
			ret = append(ret, t)
		}
	}
	return
}

func (s *memStore) ModeState(_ context.Context, userID string) (domain.ModeState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modeErr != nil {
		return domain.ModeState{}, false, s.modeErr
	}
	state, ok := s.modes[userID]
	if !ok {
		return domain.ModeState{UserID: userID, Mode: domain.ModeAI}, false, nil
	}
	return state, true, nil
}

func (s *memStore) SaveModeState(_ context.Context, state domain.ModeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[state.UserID] = state
	return nil
}

func (s *memStore) ClaimGreeting(_ context.Context, userID, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + day
	if s.greetings[key] {
		return false, nil
	}
	s.greetings[key] = true
	return true, nil
}

func (s *memStore) ReleaseGreeting(_ context.Context, userID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.greetings, userID+"|"+day)
	return nil
}

func (s *memStore) messagesOf(userID string) []domain.Message {
	out, _ := s.History(context.Background(), userID, 0)
	return out
}

func (s *memStore) correlationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.correlations)
}

type fakeResponder struct {
	answer  string
	err     error
	calls   int
	history []ai.Turn
}

func (f *fakeResponder) Name() string { return "fake" }

func (f *fakeResponder) Respond(_ context.Context, _ string, history []ai.Turn) (string, error) {
	f.calls++
	f.history = history
	return f.answer, f.err
}

type fakeTransport struct {
	nextID int64
	err    error
	sent   []domain.Outbound
}

func (f *fakeTransport) Send(_ context.Context, msg domain.Outbound) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, msg)
	f.nextID++
	return 1000 + f.nextID, nil
}

type fakeBlobs struct {
	stored  []string
	deleted []string
}

func (f *fakeBlobs) Put(_ context.Context, p *domain.Photo) error {
	p.Key = fmt.Sprintf("obj-%d-%s", len(f.stored), p.Filename)
	p.URL = "/uploads/" + p.Key
	f.stored = append(f.stored, p.Key)
	return nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []domain.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, tokens []domain.DeviceToken, n domain.Notification) domain.DispatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, n)
	return domain.DispatchResult{Sent: len(tokens)}
}

type fakeFanout struct {
	mu        sync.Mutex
	published []domain.Message
}

func (f *fakeFanout) Publish(msg domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
}

type staticNotices struct{}

func (staticNotices) TransferNotice() string    { return "transfer notice" }
func (staticNotices) UnavailableNotice() string { return "unavailable notice" }
func (staticNotices) PushTitle() string         { return "support reply" }
func (staticNotices) Greeting(name string) string {
	if name == "" {
		return "hello"
	}
	return "hello, " + name
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	store     *memStore
	responder *fakeResponder
	transport *fakeTransport
	blobs     *fakeBlobs
	notifier  *fakeNotifier
	fanout    *fakeFanout
	clock     *fakeClock
	arbiter   *Arbiter
	delivery  *Delivery
	relay     *Relay
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     newMemStore(),
		responder: &fakeResponder{answer: "automated answer"},
		transport: &fakeTransport{},
		blobs:     &fakeBlobs{},
		notifier:  &fakeNotifier{},
		fanout:    &fakeFanout{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	h.arbiter = NewArbiter(h.store, nil, staticNotices{}, 5*time.Minute)
	h.arbiter.Now = h.clock.Now
	h.delivery = NewDelivery(h.store, h.notifier, h.fanout, staticNotices{})
	h.relay = NewRelay(h.store, h.arbiter, h.responder, h.transport, h.blobs, h.delivery, staticNotices{})
	h.relay.Now = h.clock.Now
	return h
}
