package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
)

var _ tasks.Store = (*Store)(nil)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if _, err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testChannel(login string) *models.Channel {
	ch := models.NewChannel(login, "twitch")
	ch.Name = login
	ch.URLs = []string{"https://www.twitch.tv/" + login}
	ch.Image = models.ImageSet{50: login + "-50.png", 300: login + "-300.png"}
	return ch
}

func TestChannelRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add And Get", func(t *testing.T) {
		repo := NewChannelRepository(setupTestDB(t))
		ch := testChannel("foo")
		ch.Live, ch.Viewers, ch.Mature = true, 42, true

		if err := repo.AddChannel(ctx, ch); err != nil {
			t.Fatalf("failed to add channel: %v", err)
		}
		if ch.ID == 0 {
			t.Fatal("expected ID to be assigned")
		}

		got, err := repo.Channel(ctx, ch.ID)
		if err != nil {
			t.Fatalf("failed to get channel: %v", err)
		}
		if got.Login != "foo" || !got.Live || got.Viewers != 42 || !got.Mature {
			t.Errorf("unexpected channel %+v", got)
		}
		if got.URL() != "https://www.twitch.tv/foo" {
			t.Errorf("expected URLs to round trip, got %v", got.URLs)
		}
		if got.Image[50] != "foo-50.png" || got.Image[300] != "foo-300.png" {
			t.Errorf("expected image set to round trip, got %v", got.Image)
		}

		byLogin, err := repo.ChannelByLogin(ctx, "foo", "twitch")
		if err != nil || byLogin.ID != ch.ID {
			t.Errorf("expected lookup by login to find %d, got %v (%v)", ch.ID, byLogin, err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := NewChannelRepository(setupTestDB(t))
		if err := repo.AddChannel(ctx, testChannel("foo")); err != nil {
			t.Fatalf("failed to add channel: %v", err)
		}

		err := repo.AddChannel(ctx, testChannel("foo"))
		if !errors.Is(err, shared.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}

		other := testChannel("foo")
		other.Type = "other"
		if err := repo.AddChannel(ctx, other); err != nil {
			t.Errorf("expected same login on another provider to be allowed, got %v", err)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		repo := NewChannelRepository(setupTestDB(t))

		if _, err := repo.Channel(ctx, 99); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.ChannelByLogin(ctx, "nobody", "twitch"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.UpdateChannel(ctx, &models.Channel{ID: 99}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}
		if err := repo.RemoveChannel(ctx, 99); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on remove, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewChannelRepository(setupTestDB(t))
		ch := testChannel("foo")
		if err := repo.AddChannel(ctx, ch); err != nil {
			t.Fatalf("failed to add channel: %v", err)
		}

		ch.Name = "HOST hosting TARGET"
		ch.Title = "speedrun"
		ch.Live = true
		if err := repo.UpdateChannel(ctx, ch); err != nil {
			t.Fatalf("failed to update channel: %v", err)
		}

		got, _ := repo.Channel(ctx, ch.ID)
		if got.Name != "HOST hosting TARGET" || got.Title != "speedrun" || !got.Live {
			t.Errorf("expected updated attributes, got %+v", got)
		}
	})

	t.Run("List By Type", func(t *testing.T) {
		repo := NewChannelRepository(setupTestDB(t))
		for _, login := range []string{"a", "b"} {
			if err := repo.AddChannel(ctx, testChannel(login)); err != nil {
				t.Fatalf("failed to add channel: %v", err)
			}
		}
		other := testChannel("c")
		other.Type = "other"
		if err := repo.AddChannel(ctx, other); err != nil {
			t.Fatalf("failed to add channel: %v", err)
		}

		tt := []struct {
			name   string
			typ    string
			logins []string
		}{
			{name: "All", typ: "", logins: []string{"a", "b", "c"}},
			{name: "Twitch", typ: "twitch", logins: []string{"a", "b"}},
			{name: "Unknown", typ: "nope", logins: []string{}},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				channels, err := repo.Channels(ctx, tc.typ)
				if err != nil {
					t.Fatalf("failed to list channels: %v", err)
				}
				if got := models.Logins(channels); !slices.Equal(got, tc.logins) {
					t.Errorf("expected %v, got %v", tc.logins, got)
				}
			})
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Add And Get", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		u := models.NewUser("viewer", "twitch")
		u.Name = "Viewer"
		u.Image = models.ImageSet{300: "v.png"}
		u.Favorites = []string{"a", "b"}

		if err := repo.AddUser(ctx, u); err != nil {
			t.Fatalf("failed to add user: %v", err)
		}

		got, err := repo.User(ctx, u.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Name != "Viewer" || got.Image[300] != "v.png" || !slices.Equal(got.Favorites, []string{"a", "b"}) {
			t.Errorf("unexpected user %+v", got)
		}

		if _, err := repo.UserByLogin(ctx, "viewer", "twitch"); err != nil {
			t.Errorf("expected lookup by login to succeed, got %v", err)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.AddUser(ctx, models.NewUser("viewer", "twitch")); err != nil {
			t.Fatalf("failed to add user: %v", err)
		}
		if err := repo.AddUser(ctx, models.NewUser("viewer", "twitch")); !errors.Is(err, shared.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("Update Favorites", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		u := models.NewUser("viewer", "twitch")
		if err := repo.AddUser(ctx, u); err != nil {
			t.Fatalf("failed to add user: %v", err)
		}

		u.Favorites = []string{"c"}
		if err := repo.UpdateUser(ctx, u); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		got, _ := repo.User(ctx, u.ID)
		if !slices.Equal(got.Favorites, []string{"c"}) {
			t.Errorf("expected favorites [c], got %v", got.Favorites)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if _, err := repo.User(ctx, 7); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.UpdateUser(ctx, &models.User{ID: 7}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*Store, map[string]int64) {
		t.Helper()
		store := NewStore(setupTestDB(t))
		ids := map[string]int64{}
		for _, login := range []string{"a", "b", "c"} {
			ch := testChannel(login)
			if err := store.AddChannel(ctx, ch); err != nil {
				t.Fatalf("failed to add channel: %v", err)
			}
			ids[login] = ch.ID
		}

		first := models.NewUser("first", "twitch")
		first.Favorites = []string{"a", "b"}
		second := models.NewUser("second", "twitch")
		second.Favorites = []string{"b", "c"}
		for _, u := range []*models.User{first, second} {
			if err := store.AddUser(ctx, u); err != nil {
				t.Fatalf("failed to add user: %v", err)
			}
			ids["user:"+u.Login] = u.ID
		}
		return store, ids
	}

	t.Run("RemoveUser Cascade", func(t *testing.T) {
		store, ids := seed(t)

		removed, err := store.RemoveUser(ctx, ids["user:first"], true)
		if err != nil {
			t.Fatalf("failed to remove user: %v", err)
		}
		if !slices.Equal(removed, []int64{ids["a"]}) {
			t.Errorf("expected only channel a removed, got %v", removed)
		}

		channels, _ := store.Channels(ctx, "")
		if got := models.Logins(channels); !slices.Equal(got, []string{"b", "c"}) {
			t.Errorf("expected channels [b c] to remain, got %v", got)
		}
		if _, err := store.User(ctx, ids["user:first"]); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected user to be removed, got %v", err)
		}
	})

	t.Run("RemoveUser Without Cascade", func(t *testing.T) {
		store, ids := seed(t)

		removed, err := store.RemoveUser(ctx, ids["user:first"], false)
		if err != nil {
			t.Fatalf("failed to remove user: %v", err)
		}
		if len(removed) != 0 {
			t.Errorf("expected no channels removed, got %v", removed)
		}
		channels, _ := store.Channels(ctx, "")
		if len(channels) != 3 {
			t.Errorf("expected 3 channels to remain, got %d", len(channels))
		}
	})

	t.Run("RemoveUser Not Found", func(t *testing.T) {
		store, _ := seed(t)
		if _, err := store.RemoveUser(ctx, 999, true); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
