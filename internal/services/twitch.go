package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/paginate"
	"github.com/desertthunder/livewatch/internal/queue"
	"github.com/desertthunder/livewatch/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

// Requeue is the retry predicate for kraken requests.
//
// Absent responses and statuses outside 400-499 (other than 0) are retried. A 200 is accepted unless the payload
// carries an error field, in which case it is retried unless the embedded status marks it as a client error.
func Requeue(resp *queue.Response) bool {
	if resp == nil {
		return true
	}
	if resp.StatusCode == http.StatusOK {
		if !resp.Has("error") {
			return false
		}
		return !fatalAPIError(resp)
	}
	return (resp.StatusCode < 400 || resp.StatusCode >= 500) && resp.StatusCode != 0
}

func fatalAPIError(resp *queue.Response) bool {
	var status int
	if !resp.Field("status", &status) {
		return false
	}
	return status >= 400 && status < 500
}

// TwitchService implements [Provider] for Twitch.
type TwitchService struct {
	cfg     shared.TwitchConfig
	queue   *queue.Queue
	headers http.Header
	ids     *IDCache
	logger  *log.Logger

	mu sync.Mutex // serializes RefreshFavorites callbacks
}

// NewTwitchService creates a provider that sends every request through q.
func NewTwitchService(cfg shared.TwitchConfig, q *queue.Queue, logger *log.Logger) *TwitchService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = paginate.DefaultPageSize
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	headers := http.Header{}
	headers.Set("Client-ID", cfg.ClientID)
	headers.Set("Accept", "application/vnd.twitchtv.v3+json")

	return &TwitchService{
		cfg:     cfg,
		queue:   q,
		headers: headers,
		ids:     NewIDCache(),
		logger:  shared.WithLogger(logger, "provider", twitchType),
	}
}

// NewTwitchClient returns the HTTP client used by the request queue transport.
//
// When a client secret is configured the client attaches an app access token obtained with the client credentials
// grant; otherwise requests are identified by the Client-ID header alone.
func NewTwitchClient(ctx context.Context, cfg shared.TwitchConfig, timeout time.Duration) *http.Client {
	if cfg.ClientSecret == "" {
		return &http.Client{Timeout: timeout}
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	client := cc.Client(ctx)
	client.Timeout = timeout
	return client
}

func (t *TwitchService) Name() string { return "Twitch" }

func (t *TwitchService) Type() string { return twitchType }

func (t *TwitchService) Capabilities() Capabilities {
	return Capabilities{Favorites: true, Credentials: true, Featured: true}
}

// IDs exposes the login to internal id cache.
func (t *TwitchService) IDs() *IDCache { return t.ids }

func (t *TwitchService) get(ctx context.Context, path string, priority queue.Priority) (*queue.Response, error) {
	return t.queue.Do(ctx, t.cfg.BaseURL+path, t.headers, Requeue, priority)
}

// failed reports whether a resolved response is a hard API failure.
func failed(resp *queue.Response) bool {
	return !resp.OK() || resp.Has("error")
}

func (t *TwitchService) FetchChannel(ctx context.Context, login string) (*models.Channel, error) {
	resp, err := t.get(ctx, "/channels/"+url.PathEscape(login), queue.High)
	if err != nil {
		return nil, shared.NewEntityError("fetch", shared.KindChannel, login, twitchType, apiError(err))
	}
	if failed(resp) {
		return nil, shared.NewEntityError("fetch", shared.KindChannel, login, twitchType, shared.ErrNotFound)
	}

	var c TwitchChannel
	if err := resp.Decode(&c); err != nil {
		return nil, shared.NewEntityError("fetch", shared.KindChannel, login, twitchType, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
	}
	if c.ID != 0 {
		t.ids.Put(c.Name, c.ID)
	}
	return NormalizeChannel(c), nil
}

func (t *TwitchService) UpdateChannel(ctx context.Context, login string, ignoreHosted bool) (*models.Channel, error) {
	var (
		stream  *TwitchStream
		channel *models.Channel
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := t.get(gctx, "/streams/"+url.PathEscape(login), queue.High)
		if err != nil {
			return apiError(err)
		}
		if !failed(resp) {
			resp.Field("stream", &stream)
		}
		return nil
	})
	g.Go(func() error {
		ch, err := t.FetchChannel(gctx, login)
		channel = ch
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, shared.NewEntityError("update", shared.KindChannel, login, twitchType, err)
	}

	if stream != nil && (t.cfg.ShowPlaylist || !stream.IsPlaylist) {
		channel.Live = true
		channel.Viewers = stream.Viewers
		channel.Thumbnail = stream.Preview.Medium
		return channel, nil
	}

	if ignoreHosted {
		channel.SetOffline()
		return channel, nil
	}
	return t.resolveHosting(ctx, []*models.Channel{channel}, nil)[0], nil
}

func (t *TwitchService) streamType() string {
	if t.cfg.ShowPlaylist {
		return "all"
	}
	return "live"
}

func (t *TwitchService) streams(resp *queue.Response) []TwitchStream {
	var streams []TwitchStream
	if resp.Has("error") || !resp.Field("streams", &streams) {
		return nil
	}
	return streams
}

func (t *TwitchService) RefreshChannels(ctx context.Context, channels []*models.Channel) ([]*models.Channel, error) {
	if len(channels) == 0 {
		return nil, nil
	}

	byLogin := make(map[string]*models.Channel, len(channels))
	for _, ch := range channels {
		byLogin[ch.Login] = ch
	}

	size := t.cfg.PageSize
	q := url.Values{}
	q.Set("channel", strings.Join(models.Logins(channels), ","))
	q.Set("stream_type", t.streamType())
	q.Set("limit", strconv.Itoa(size))

	streams, err := paginate.Collect(ctx, paginate.Config[TwitchStream]{
		URL:       t.cfg.BaseURL + "/streams?" + q.Encode() + "&offset=",
		PageSize:  size,
		FirstPage: paginate.Queued(t.queue, t.headers, Requeue, queue.High),
		Request:   paginate.Queued(t.queue, t.headers, Requeue, queue.Low),
		Items:     t.streams,
	})
	if err != nil {
		return nil, err
	}

	live := make([]*models.Channel, 0, len(streams))
	seen := make(map[string]bool, len(streams))
	for _, s := range streams {
		old, ok := byLogin[s.Channel.Name]
		if !ok || seen[s.Channel.Name] {
			continue
		}
		if s.IsPlaylist && !t.cfg.ShowPlaylist {
			continue
		}
		seen[s.Channel.Name] = true
		if s.Channel.ID != 0 {
			t.ids.Put(s.Channel.Name, s.Channel.ID)
		}

		ch := NormalizeStream(s)
		ch.ID = old.ID
		live = append(live, ch)
	}

	var offline []*models.Channel
	for _, ch := range channels {
		if !seen[ch.Login] {
			offline = append(offline, ch.Clone())
		}
	}

	t.logger.Debug("refreshed channels", "total", len(channels), "live", len(live))
	if len(offline) == 0 {
		return live, nil
	}
	return append(live, t.resolveHosting(ctx, offline, live)...), nil
}

func (t *TwitchService) fetchUser(ctx context.Context, login string, priority queue.Priority) (*models.User, error) {
	resp, err := t.get(ctx, "/users/"+url.PathEscape(login), priority)
	if err != nil {
		return nil, apiError(err)
	}
	if failed(resp) {
		return nil, shared.ErrNotFound
	}

	var u TwitchUser
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return NormalizeUser(u), nil
}

func (t *TwitchService) follows(login string, priority queue.Priority) paginate.Config[*models.Channel] {
	size := t.cfg.PageSize
	return paginate.Config[*models.Channel]{
		URL:      fmt.Sprintf("%s/users/%s/follows/channels?limit=%d&offset=", t.cfg.BaseURL, url.PathEscape(login), size),
		PageSize: size,
		Request:  paginate.Queued(t.queue, t.headers, Requeue, priority),
		Items: func(resp *queue.Response) []*models.Channel {
			var follows []twitchFollow
			if !resp.Field("follows", &follows) {
				return nil
			}
			channels := make([]*models.Channel, 0, len(follows))
			for _, f := range follows {
				channels = append(channels, NormalizeChannel(f.Channel))
			}
			return channels
		},
	}
}

func (t *TwitchService) FetchUserFavorites(ctx context.Context, login string) (*models.User, []*models.Channel, error) {
	user, err := t.fetchUser(ctx, login, queue.High)
	if err != nil {
		return nil, nil, shared.NewEntityError("fetch", shared.KindUser, login, twitchType, err)
	}

	channels, err := paginate.Collect(ctx, t.follows(user.Login, queue.High))
	if err != nil {
		return nil, nil, shared.NewEntityError("fetch", shared.KindUser, login, twitchType, err)
	}

	user.SetFavorites(channels)
	return user, channels, nil
}

func (t *TwitchService) RefreshFavorites(ctx context.Context, users []*models.User, onUpdate func(FavoritesUpdate)) error {
	if len(users) == 0 {
		return nil
	}

	byLogin := make(map[string]*models.User, len(users))
	urls := make([]string, 0, len(users))
	for _, u := range users {
		byLogin[strings.ToLower(u.Login)] = u
		urls = append(urls, t.cfg.BaseURL+"/users/"+url.PathEscape(u.Login))
	}

	var wg sync.WaitGroup
	onProfile := func(resp *queue.Response) {
		if failed(resp) {
			return
		}
		var profile TwitchUser
		if err := resp.Decode(&profile); err != nil {
			return
		}
		old, ok := byLogin[strings.ToLower(profile.Name)]
		if !ok {
			return
		}

		user := old.Clone()
		user.Update(NormalizeUser(profile))

		wg.Add(1)
		done := paginate.Run(ctx, t.follows(user.Login, queue.Low), func(channels []*models.Channel) {
			if ctx.Err() != nil {
				return
			}
			added := user.NewFavorites(channels)
			user.SetFavorites(channels)

			t.mu.Lock()
			defer t.mu.Unlock()
			onUpdate(FavoritesUpdate{User: user, NewChannels: added})
		})
		go func() {
			<-done
			wg.Done()
		}()
	}

	<-t.queue.EnqueueBatch(ctx, urls, queue.Low, onProfile, t.headers, Requeue)
	wg.Wait()
	return ctx.Err()
}

func (t *TwitchService) SearchFeatured(ctx context.Context, query string) ([]*models.Channel, error) {
	var (
		streams []TwitchStream
		resp    *queue.Response
		err     error
	)

	if query == "" {
		resp, err = t.get(ctx, "/streams/featured", queue.High)
		if err != nil {
			return nil, apiError(err)
		}
		var featured []twitchFeatured
		resp.Field("featured", &featured)
		for _, f := range featured {
			streams = append(streams, f.Stream)
		}
	} else {
		resp, err = t.get(ctx, "/search/streams?"+url.Values{"q": {query}}.Encode(), queue.High)
		if err != nil {
			return nil, apiError(err)
		}
		resp.Field("streams", &streams)
	}

	// Only an empty response is a failure; filtering everything out leaves an empty list.
	if len(streams) == 0 {
		if query == "" {
			return nil, fmt.Errorf("%w: no featured channels on %s", shared.ErrNoResults, t.Name())
		}
		return nil, fmt.Errorf("%w: %q on %s", shared.ErrNoResults, query, t.Name())
	}

	channels := make([]*models.Channel, 0, len(streams))
	for _, s := range streams {
		if s.Channel.Mature && !t.cfg.ShowMature {
			continue
		}
		channels = append(channels, NormalizeStream(s))
	}
	return channels, nil
}

// apiError keeps context errors intact and tags everything else as a failed request.
func apiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, shared.ErrQueueClosed) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}
