package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/services"
	"github.com/desertthunder/livewatch/internal/shared"
	"golang.org/x/sync/errgroup"
)

// SyncEngine defines the commands a presentation layer can issue.
type SyncEngine interface {
	// AddChannel fetches a channel with its live status and adds it to the store.
	AddChannel(ctx context.Context, login, typ string) (*models.Channel, error)

	// AddUser fetches a user with all favorites, adds the favorites that are not yet tracked, then the user.
	AddUser(ctx context.Context, login, typ string) (*models.User, error)

	RemoveChannel(ctx context.Context, id int64) error

	// RemoveUser removes a user, and with removeFavorites every favorite no other user still follows.
	RemoveUser(ctx context.Context, id int64, removeFavorites bool) error

	// RefreshChannel re-fetches one channel, resolving hosting when it is offline.
	RefreshChannel(ctx context.Context, id int64) (*models.Channel, error)

	// RefreshChannels refreshes every channel of typ, or of every provider when typ is empty.
	RefreshChannels(ctx context.Context, typ string) error

	// RefreshFavorites refreshes one user's favorites, or every user's when id is 0.
	RefreshFavorites(ctx context.Context, id int64) error

	// Cancel marks a pending add as cancelled. Its result is discarded without an event.
	Cancel(kind, typ, name string)

	Search(ctx context.Context, typ, query string) ([]*models.Channel, error)
	Featured(ctx context.Context, typ string) ([]*models.Channel, error)
	Providers() []ProviderInfo

	// Subscribe returns a channel receiving every subsequent [Event].
	Subscribe(buffer int) <-chan Event
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Type         string                `json:"type"`
	Name         string                `json:"name"`
	Capabilities services.Capabilities `json:"capabilities"`
}

// ChannelEngine implements [SyncEngine].
type ChannelEngine struct {
	providers services.Providers
	store     Store
	logger    *log.Logger

	mu          sync.Mutex
	cancels     map[string]bool
	subscribers []chan Event
}

// NewChannelEngine creates an engine over providers and store.
func NewChannelEngine(providers services.Providers, store Store, logger *log.Logger) *ChannelEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ChannelEngine{
		providers: providers,
		store:     store,
		logger:    logger,
		cancels:   make(map[string]bool),
	}
}

func (e *ChannelEngine) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	e.mu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.mu.Unlock()
	return ch
}

// Close closes every subscription. No events may be published afterwards.
func (e *ChannelEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}

// publish delivers ev to every subscriber, blocking on full buffers until ctx ends.
func (e *ChannelEngine) publish(ctx context.Context, ev Event) {
	e.mu.Lock()
	subs := append([]chan Event(nil), e.subscribers...)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// fail publishes err as an Error event and returns it.
func (e *ChannelEngine) fail(ctx context.Context, run string, err error) error {
	e.publish(ctx, errorEvent(run, err))
	return err
}

func (e *ChannelEngine) begin(op string, kv ...any) (string, *log.Logger) {
	run := shared.GenerateID()
	logger := shared.WithLogger(e.logger, append([]any{"run", run, "op", op}, kv...)...)
	logger.Debug("starting")
	return run, logger
}

func cancelKey(kind, typ, name string) string {
	return kind + typ + name
}

func (e *ChannelEngine) track(key string) {
	e.mu.Lock()
	e.cancels[key] = false
	e.mu.Unlock()
}

// settle stops tracking key and reports whether it was cancelled meanwhile.
func (e *ChannelEngine) settle(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancelled := e.cancels[key]
	delete(e.cancels, key)
	return cancelled
}

func (e *ChannelEngine) Cancel(kind, typ, name string) {
	key := cancelKey(kind, typ, normalizeLogin(name))
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cancels[key]; ok {
		e.cancels[key] = true
	}
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func (e *ChannelEngine) AddChannel(ctx context.Context, login, typ string) (*models.Channel, error) {
	login = normalizeLogin(login)
	run, logger := e.begin("add_channel", "channel", login, "provider", typ)

	if login == "" {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindChannel, login, typ, shared.ErrInvalidInput))
	}
	provider, err := e.providers.Get(typ)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindChannel, login, typ, err))
	}
	if _, err := e.store.ChannelByLogin(ctx, login, typ); err == nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindChannel, login, typ, shared.ErrAlreadyExists))
	}

	key := cancelKey(shared.KindChannel, typ, login)
	e.track(key)
	ch, err := provider.UpdateChannel(ctx, login, false)
	if e.settle(key) {
		logger.Info("add cancelled")
		return nil, shared.ErrCancelled
	}
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindChannel, login, typ, err))
	}

	if err := e.store.AddChannel(ctx, ch); err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindChannel, login, typ, err))
	}

	logger.Info("added channel", "id", ch.ID, "live", ch.Live)
	e.publish(ctx, channelsAddedEvent(run, []*models.Channel{ch}))
	return ch, nil
}

func (e *ChannelEngine) AddUser(ctx context.Context, login, typ string) (*models.User, error) {
	login = normalizeLogin(login)
	run, logger := e.begin("add_user", "user", login, "provider", typ)

	if login == "" {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, shared.ErrInvalidInput))
	}
	provider, err := e.providers.Get(typ)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, err))
	}
	if !provider.Capabilities().Favorites {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, shared.ErrUnsupported))
	}
	if _, err := e.store.UserByLogin(ctx, login, typ); err == nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, shared.ErrAlreadyExists))
	}

	key := cancelKey(shared.KindUser, typ, login)
	e.track(key)
	user, channels, err := provider.FetchUserFavorites(ctx, login)
	if e.settle(key) {
		logger.Info("add cancelled")
		return nil, shared.ErrCancelled
	}
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, err))
	}

	added, err := e.addMissing(ctx, channels)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, err))
	}
	if err := e.store.AddUser(ctx, user); err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("add", shared.KindUser, login, typ, err))
	}

	logger.Info("added user", "id", user.ID, "favorites", len(user.Favorites), "new_channels", len(added))
	if len(added) > 0 {
		e.publish(ctx, channelsAddedEvent(run, added))
	}
	e.publish(ctx, userAddedEvent(run, user))

	if len(added) > 0 {
		if err := e.refresh(ctx, run, provider, added); err != nil {
			logger.Warn("initial refresh failed", "error", err)
		}
	}
	return user, nil
}

// addMissing stores the channels not yet tracked and returns them with their assigned IDs.
func (e *ChannelEngine) addMissing(ctx context.Context, channels []*models.Channel) ([]*models.Channel, error) {
	var added []*models.Channel
	for _, ch := range channels {
		if _, err := e.store.ChannelByLogin(ctx, ch.Login, ch.Type); err == nil {
			continue
		}
		if err := e.store.AddChannel(ctx, ch); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				continue
			}
			return added, err
		}
		added = append(added, ch)
	}
	return added, nil
}

func (e *ChannelEngine) RemoveChannel(ctx context.Context, id int64) error {
	run, logger := e.begin("remove_channel", "id", id)

	ch, err := e.store.Channel(ctx, id)
	if err != nil {
		return e.fail(ctx, run, shared.NewEntityError("remove", shared.KindChannel, fmt.Sprint(id), "", err))
	}
	if err := e.store.RemoveChannel(ctx, id); err != nil {
		return e.fail(ctx, run, shared.NewEntityError("remove", shared.KindChannel, ch.Login, ch.Type, err))
	}

	logger.Info("removed channel", "channel", ch.Login)
	e.publish(ctx, channelRemovedEvent(run, id))
	return nil
}

func (e *ChannelEngine) RemoveUser(ctx context.Context, id int64, removeFavorites bool) error {
	run, logger := e.begin("remove_user", "id", id, "cascade", removeFavorites)

	user, err := e.store.User(ctx, id)
	if err != nil {
		return e.fail(ctx, run, shared.NewEntityError("remove", shared.KindUser, fmt.Sprint(id), "", err))
	}
	removed, err := e.store.RemoveUser(ctx, id, removeFavorites)
	if err != nil {
		return e.fail(ctx, run, shared.NewEntityError("remove", shared.KindUser, user.Login, user.Type, err))
	}

	logger.Info("removed user", "user", user.Login, "channels", len(removed))
	e.publish(ctx, userRemovedEvent(run, id))
	for _, cid := range removed {
		e.publish(ctx, channelRemovedEvent(run, cid))
	}
	return nil
}

func (e *ChannelEngine) RefreshChannel(ctx context.Context, id int64) (*models.Channel, error) {
	run, logger := e.begin("refresh_channel", "id", id)

	ch, err := e.store.Channel(ctx, id)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, fmt.Sprint(id), "", err))
	}
	provider, err := e.providers.Get(ch.Type)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, ch.Login, ch.Type, err))
	}

	fresh, err := provider.UpdateChannel(ctx, ch.Login, false)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, ch.Login, ch.Type, err))
	}
	ch.Update(fresh)
	if err := e.store.UpdateChannel(ctx, ch); err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, ch.Login, ch.Type, err))
	}

	logger.Debug("refreshed channel", "channel", ch.Login, "live", ch.Live)
	e.publish(ctx, channelsUpdatedEvent(run, []*models.Channel{ch}))
	return ch, nil
}

func (e *ChannelEngine) types(typ string) []string {
	if typ != "" {
		return []string{typ}
	}
	return e.providers.Types()
}

func (e *ChannelEngine) RefreshChannels(ctx context.Context, typ string) error {
	run, _ := e.begin("refresh_channels", "provider", typ)

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range e.types(typ) {
		provider, err := e.providers.Get(t)
		if err != nil {
			return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, "", t, err))
		}
		g.Go(func() error {
			channels, err := e.store.Channels(gctx, t)
			if err != nil {
				return err
			}
			return e.refresh(gctx, run, provider, channels)
		})
	}
	return g.Wait()
}

// refresh merges provider results into the stored channels and publishes one updated batch.
func (e *ChannelEngine) refresh(ctx context.Context, run string, provider services.Provider, channels []*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	fresh, err := provider.RefreshChannels(ctx, channels)
	if err != nil {
		return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, "", provider.Type(), err))
	}

	byID := make(map[int64]*models.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	updated := make([]*models.Channel, 0, len(fresh))
	for _, f := range fresh {
		ch, ok := byID[f.ID]
		if !ok {
			continue
		}
		ch.Update(f)
		if err := e.store.UpdateChannel(ctx, ch); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindChannel, ch.Login, ch.Type, err))
		}
		updated = append(updated, ch)
	}

	e.logger.Debug("refreshed channels", "run", run, "provider", provider.Type(), "count", len(updated))
	if len(updated) > 0 {
		e.publish(ctx, channelsUpdatedEvent(run, updated))
	}
	return nil
}

func (e *ChannelEngine) RefreshFavorites(ctx context.Context, id int64) error {
	run, logger := e.begin("refresh_favorites", "id", id)

	var users []*models.User
	if id != 0 {
		user, err := e.store.User(ctx, id)
		if err != nil {
			return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindUser, fmt.Sprint(id), "", err))
		}
		users = append(users, user)
	} else {
		all, err := e.store.Users(ctx, "")
		if err != nil {
			return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindUser, "", "", err))
		}
		users = all
	}

	byType := map[string][]*models.User{}
	for _, u := range users {
		byType[u.Type] = append(byType[u.Type], u)
	}

	g, gctx := errgroup.WithContext(ctx)
	for typ, group := range byType {
		provider, err := e.providers.Get(typ)
		if err != nil {
			return e.fail(ctx, run, shared.NewEntityError("refresh", shared.KindUser, "", typ, err))
		}
		if !provider.Capabilities().Favorites {
			continue
		}
		g.Go(func() error {
			var added []*models.Channel
			err := provider.RefreshFavorites(gctx, group, func(u services.FavoritesUpdate) {
				added = append(added, e.applyFavorites(gctx, run, logger, u)...)
			})
			if err != nil {
				return err
			}
			// Newly tracked favorites get their live status in one batch.
			if err := e.refresh(gctx, run, provider, added); err != nil {
				logger.Warn("refresh of new favorites failed", "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// applyFavorites stores a refreshed user and starts tracking its newly favorited channels, returning the ones
// that were not tracked before.
func (e *ChannelEngine) applyFavorites(ctx context.Context, run string, logger *log.Logger, u services.FavoritesUpdate) []*models.Channel {
	if err := e.store.UpdateUser(ctx, u.User); err != nil {
		e.publish(ctx, errorEvent(run, shared.NewEntityError("refresh", shared.KindUser, u.User.Login, u.User.Type, err)))
		return nil
	}
	e.publish(ctx, userUpdatedEvent(run, u.User))

	if len(u.NewChannels) == 0 {
		return nil
	}
	added, err := e.addMissing(ctx, u.NewChannels)
	if err != nil {
		e.publish(ctx, errorEvent(run, shared.NewEntityError("refresh", shared.KindUser, u.User.Login, u.User.Type, err)))
	}

	logger.Info("new favorites", "user", u.User.Login, "count", len(u.NewChannels), "added", len(added))
	e.publish(ctx, newChannelsEvent(run, u.User, u.NewChannels))
	if len(added) > 0 {
		e.publish(ctx, channelsAddedEvent(run, added))
	}
	return added
}

func (e *ChannelEngine) Search(ctx context.Context, typ, query string) ([]*models.Channel, error) {
	run, _ := e.begin("search", "provider", typ, "query", query)
	if strings.TrimSpace(query) == "" {
		return nil, e.fail(ctx, run, shared.NewEntityError("search", shared.KindChannel, "", typ, shared.ErrMissingArgument))
	}
	return e.searchFeatured(ctx, run, "search", typ, query)
}

func (e *ChannelEngine) Featured(ctx context.Context, typ string) ([]*models.Channel, error) {
	run, _ := e.begin("featured", "provider", typ)
	return e.searchFeatured(ctx, run, "featured", typ, "")
}

func (e *ChannelEngine) searchFeatured(ctx context.Context, run, op, typ, query string) ([]*models.Channel, error) {
	provider, err := e.providers.Get(typ)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError(op, shared.KindChannel, "", typ, err))
	}
	if !provider.Capabilities().Featured {
		return nil, e.fail(ctx, run, shared.NewEntityError(op, shared.KindChannel, "", typ, shared.ErrUnsupported))
	}

	channels, err := provider.SearchFeatured(ctx, query)
	if err != nil {
		return nil, e.fail(ctx, run, shared.NewEntityError(op, shared.KindChannel, "", typ, err))
	}
	return channels, nil
}

func (e *ChannelEngine) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(e.providers))
	for _, typ := range e.providers.Types() {
		p := e.providers[typ]
		infos = append(infos, ProviderInfo{Type: p.Type(), Name: p.Name(), Capabilities: p.Capabilities()})
	}
	return infos
}
