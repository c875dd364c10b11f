package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/queue"
	"golang.org/x/sync/errgroup"
)

// resolveHosting marks offline channels offline, or merges in the live status of the channel they host.
//
// channels are owned by the caller and modified in place; one entry per input is returned in input order.
// Targets already present in channels or live are not looked up again.
func (t *TwitchService) resolveHosting(ctx context.Context, channels, live []*models.Channel) []*models.Channel {
	if !t.cfg.ShowHosting {
		for _, ch := range channels {
			setOffline(ch)
		}
		return channels
	}

	targets := t.hostTargets(ctx, channels)

	existing := make(map[string]bool, len(channels)+len(live))
	for _, ch := range channels {
		existing[ch.Login] = true
	}
	for _, ch := range live {
		existing[ch.Login] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		target := targets[ch.Login]
		if target == "" || existing[target] {
			setOffline(ch)
			continue
		}

		g.Go(func() error {
			hosted, err := t.UpdateChannel(gctx, target, true)
			if err != nil {
				t.logger.Debug("hosted channel lookup failed", "channel", ch.Login, "target", target, "error", err)
				setOffline(ch)
				return nil
			}
			mergeHosted(ch, hosted)
			return nil
		})
	}
	_ = g.Wait()

	return channels
}

func setOffline(ch *models.Channel) {
	ch.Name = OriginalName(ch.Name)
	ch.SetOffline()
}

func mergeHosted(ch, hosted *models.Channel) {
	ch.Title = hosted.Title
	ch.Category = hosted.Category
	if !hosted.Live {
		setOffline(ch)
		return
	}
	ch.Live = true
	ch.Viewers = hosted.Viewers
	ch.Thumbnail = hosted.Thumbnail
	ch.Name = HostingName(ch.Name, hosted.Name)
}

// hostTargets returns the login each channel is hosting, keyed by host login.
// Lookup failures yield an empty map.
func (t *TwitchService) hostTargets(ctx context.Context, channels []*models.Channel) map[string]string {
	ids := make([]int64, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		g.Go(func() error {
			if id, ok := t.channelID(gctx, ch.Login); ok {
				ids[i] = id
			}
			return nil
		})
	}
	_ = g.Wait()

	var hostIDs []string
	for _, id := range ids {
		if id != 0 {
			hostIDs = append(hostIDs, strconv.FormatInt(id, 10))
		}
	}
	if len(hostIDs) == 0 {
		return nil
	}

	q := url.Values{}
	q.Set("include_logins", "1")
	q.Set("host", strings.Join(hostIDs, ","))

	resp, err := t.queue.Do(ctx, t.cfg.HostsURL+"?"+q.Encode(), nil, Requeue, queue.Low)
	if err != nil || failed(resp) {
		t.logger.Debug("host lookup failed", "hosts", len(hostIDs), "error", err)
		return nil
	}

	var hosts []TwitchHost
	resp.Field("hosts", &hosts)

	targets := make(map[string]string, len(hosts))
	for _, h := range hosts {
		if h.TargetLogin != "" {
			targets[h.HostLogin] = h.TargetLogin
		}
	}
	return targets
}

// channelID resolves a login to its internal id through the cache.
func (t *TwitchService) channelID(ctx context.Context, login string) (int64, bool) {
	if id, ok := t.ids.Get(login); ok {
		return id, true
	}

	resp, err := t.get(ctx, "/channels/"+url.PathEscape(login), queue.Low)
	if err != nil || failed(resp) {
		return 0, false
	}

	var c TwitchChannel
	if !resp.Field("_id", &c.ID) || c.ID == 0 {
		return 0, false
	}
	t.ids.Put(login, c.ID)
	return c.ID, true
}
