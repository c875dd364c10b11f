package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/services"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
	tu "github.com/desertthunder/livewatch/internal/testing"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func setupModel(t *testing.T) (*Model, *tasks.MemoryStore, *tu.MockProvider) {
	t.Helper()
	ctx := context.Background()

	provider := tu.NewMockProvider()
	store := tasks.NewMemoryStore()

	seed := []struct {
		login   string
		live    bool
		viewers int
	}{
		{"quiet", false, 0},
		{"small", true, 10},
		{"big", true, 500},
	}
	for _, s := range seed {
		ch := models.NewChannel(s.login, provider.TypeName)
		ch.Name = s.login
		ch.Live, ch.Viewers = s.live, s.viewers
		if err := store.AddChannel(ctx, ch); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}
	u := models.NewUser("viewer", provider.TypeName)
	u.Name = "Viewer"
	u.Favorites = []string{"quiet"}
	if err := store.AddUser(ctx, u); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	engine := tasks.NewChannelEngine(services.NewProviders(provider), store, shared.NewLogger(&bytes.Buffer{}))
	t.Cleanup(engine.Close)

	m := NewModel(ctx, engine, store, provider.TypeName)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.load()())
	return m, store, provider
}

func channelLogins(m *Model) []string {
	var logins []string
	for _, item := range m.channelList.Items() {
		logins = append(logins, item.(channelItem).channel.Login)
	}
	return logins
}

func TestModel(t *testing.T) {
	t.Run("Load Sorts Live First", func(t *testing.T) {
		m, _, _ := setupModel(t)

		if got := strings.Join(channelLogins(m), ","); got != "big,small,quiet" {
			t.Errorf("expected big,small,quiet, got %s", got)
		}
		if len(m.userList.Items()) != 1 {
			t.Errorf("expected one user, got %d", len(m.userList.Items()))
		}
	})

	t.Run("Live Only Toggle", func(t *testing.T) {
		m, _, _ := setupModel(t)

		m.Update(keyRunes("l"))
		if got := strings.Join(channelLogins(m), ","); got != "big,small" {
			t.Errorf("expected live channels only, got %s", got)
		}

		m.Update(keyRunes("l"))
		if len(channelLogins(m)) != 3 {
			t.Errorf("expected all channels after toggling back, got %v", channelLogins(m))
		}
	})

	t.Run("Events Update Lists", func(t *testing.T) {
		m, store, _ := setupModel(t)
		quiet, _ := store.ChannelByLogin(context.Background(), "quiet", "mock")

		quiet.Live, quiet.Viewers = true, 9000
		m.Update(eventMsg(tasks.Event{Kind: tasks.ChannelUpdated, Channels: []*models.Channel{quiet}}))
		if channelLogins(m)[0] != "quiet" {
			t.Errorf("expected quiet to move to the top, got %v", channelLogins(m))
		}

		m.Update(eventMsg(tasks.Event{Kind: tasks.ChannelRemoved, ID: quiet.ID}))
		if strings.Contains(strings.Join(channelLogins(m), ","), "quiet") {
			t.Errorf("expected quiet to be removed, got %v", channelLogins(m))
		}
	})

	t.Run("Error Event Renders", func(t *testing.T) {
		m, _, _ := setupModel(t)

		err := shared.NewEntityError("add", shared.KindChannel, "ghost", "mock", shared.ErrNotFound)
		m.Update(eventMsg(tasks.Event{Kind: tasks.Error, Err: err}))

		if !strings.Contains(m.View(), "ghost") {
			t.Errorf("expected error in view, got %q", m.View())
		}
	})

	t.Run("Add Channel", func(t *testing.T) {
		m, _, provider := setupModel(t)
		provider.Channels["fresh"] = models.NewChannel("fresh", "mock")

		m.Update(keyRunes("a"))
		if m.view != InputView {
			t.Fatalf("expected input view, got %v", m.view)
		}
		m.Update(keyRunes("Fresh"))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected add command")
		}
		if m.view != ChannelListView {
			t.Errorf("expected to return to channel list, got %v", m.view)
		}

		m.Update(cmd())
		if m.status != "add fresh done" {
			t.Errorf("unexpected status %q", m.status)
		}

		m.Update(m.waitForEvent()())
		if !strings.Contains(strings.Join(channelLogins(m), ","), "fresh") {
			t.Errorf("expected fresh in list, got %v", channelLogins(m))
		}
	})

	t.Run("Cancelled Add", func(t *testing.T) {
		m, _, _ := setupModel(t)

		m.Update(commandDoneMsg("add ghost", shared.ErrCancelled))
		if m.status != "add ghost cancelled" {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("Remove User With Favorites", func(t *testing.T) {
		m, store, _ := setupModel(t)

		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.view != UserListView {
			t.Fatalf("expected user list, got %v", m.view)
		}

		m.Update(keyRunes("d"))
		if m.view != ConfirmView || !strings.Contains(m.View(), "Remove Viewer?") {
			t.Fatalf("expected confirmation, got %q", m.View())
		}

		_, cmd := m.Update(keyRunes("y"))
		m.Update(cmd())

		users, _ := store.Users(context.Background(), "")
		if len(users) != 0 {
			t.Errorf("expected user removed, got %d", len(users))
		}
		if _, err := store.ChannelByLogin(context.Background(), "quiet", "mock"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected favorite to be removed with user, got %v", err)
		}
	})

	t.Run("Closed Events", func(t *testing.T) {
		m := &Model{}
		msg := m.waitForEvent()()
		if msg.(Msg).kind != MsgEventsClosed {
			t.Errorf("expected events closed message, got %v", msg)
		}
	})
}
