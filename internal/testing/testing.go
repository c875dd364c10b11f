// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/services"
	"github.com/desertthunder/livewatch/internal/shared"
)

// MockProvider is a test double for [services.Provider] backed by fixture maps.
//
// Channels and Users are keyed by login. Hold, when set, is received from before UpdateChannel and
// FetchUserFavorites return, letting tests act while a fetch is in flight; Started is signalled first.
type MockProvider struct {
	TypeName  string
	Caps      services.Capabilities
	Channels  map[string]*models.Channel
	Users     map[string]*models.User
	Favorites map[string][]*models.Channel
	Featured  []*models.Channel
	Err       error

	Hold    chan struct{}
	Started chan string

	mu    sync.Mutex
	Calls []string
}

// NewMockProvider creates a "mock" provider supporting every capability.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		TypeName:  "mock",
		Caps:      services.Capabilities{Favorites: true, Credentials: true, Featured: true},
		Channels:  map[string]*models.Channel{},
		Users:     map[string]*models.User{},
		Favorites: map[string][]*models.Channel{},
	}
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockProvider) wait(ctx context.Context, login string) {
	if m.Started != nil {
		m.Started <- login
	}
	if m.Hold != nil {
		select {
		case <-m.Hold:
		case <-ctx.Done():
		}
	}
}

func (m *MockProvider) Name() string                        { return "Mock" }
func (m *MockProvider) Type() string                        { return m.TypeName }
func (m *MockProvider) Capabilities() services.Capabilities { return m.Caps }

func (m *MockProvider) notFound(kind, login string) error {
	return shared.NewEntityError("fetch", kind, login, m.TypeName, shared.ErrNotFound)
}

func (m *MockProvider) FetchChannel(ctx context.Context, login string) (*models.Channel, error) {
	m.record("FetchChannel:" + login)
	if m.Err != nil {
		return nil, m.Err
	}
	ch, ok := m.Channels[login]
	if !ok {
		return nil, m.notFound(shared.KindChannel, login)
	}
	return ch.Clone(), nil
}

func (m *MockProvider) UpdateChannel(ctx context.Context, login string, ignoreHosted bool) (*models.Channel, error) {
	m.record("UpdateChannel:" + login)
	m.wait(ctx, login)
	return m.FetchChannel(ctx, login)
}

func (m *MockProvider) RefreshChannels(ctx context.Context, channels []*models.Channel) ([]*models.Channel, error) {
	m.record("RefreshChannels")
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Channel, 0, len(channels))
	for _, ch := range channels {
		fresh := ch.Clone()
		if fixture, ok := m.Channels[ch.Login]; ok {
			fresh.Update(fixture)
		} else {
			fresh.SetOffline()
		}
		out = append(out, fresh)
	}
	return out, nil
}

func (m *MockProvider) FetchUserFavorites(ctx context.Context, login string) (*models.User, []*models.Channel, error) {
	m.record("FetchUserFavorites:" + login)
	m.wait(ctx, login)
	if m.Err != nil {
		return nil, nil, m.Err
	}
	u, ok := m.Users[login]
	if !ok {
		return nil, nil, m.notFound(shared.KindUser, login)
	}

	user := u.Clone()
	var channels []*models.Channel
	for _, ch := range m.Favorites[login] {
		channels = append(channels, ch.Clone())
	}
	user.SetFavorites(channels)
	return user, channels, nil
}

func (m *MockProvider) RefreshFavorites(ctx context.Context, users []*models.User, onUpdate func(services.FavoritesUpdate)) error {
	m.record("RefreshFavorites")
	for _, u := range users {
		var channels []*models.Channel
		for _, ch := range m.Favorites[u.Login] {
			channels = append(channels, ch.Clone())
		}
		user := u.Clone()
		added := user.NewFavorites(channels)
		user.SetFavorites(channels)
		onUpdate(services.FavoritesUpdate{User: user, NewChannels: added})
	}
	return ctx.Err()
}

func (m *MockProvider) SearchFeatured(ctx context.Context, query string) ([]*models.Channel, error) {
	m.record("SearchFeatured:" + query)
	if len(m.Featured) == 0 {
		return nil, shared.ErrNoResults
	}
	return m.Featured, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
