package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/livewatch/internal/models"
)

const (
	twitchType          = "twitch"
	twitchArchiveSuffix = "/profile/past_broadcasts"
	twitchChatSuffix    = "/chat"
	twitchIntentPrefix  = "twitch://open/?stream="
	twitchDefaultAvatar = "http://static-cdn.jtvnw.net/jtv_user_pictures/xarth/404_user_300x300.png"
	twitchImageToken    = "300x300"
)

// TwitchChannel is the kraken channel object.
type TwitchChannel struct {
	ID          int64  `json:"_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Logo        string `json:"logo"`
	Status      string `json:"status"`
	Game        string `json:"game"`
	Mature      bool   `json:"mature"`
}

type twitchPreview struct {
	Medium string `json:"medium"`
}

// TwitchStream is a live broadcast with its channel embedded.
type TwitchStream struct {
	Viewers    int           `json:"viewers"`
	IsPlaylist bool          `json:"is_playlist"`
	Preview    twitchPreview `json:"preview"`
	Channel    TwitchChannel `json:"channel"`
}

// TwitchUser is the kraken user profile.
type TwitchUser struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Logo        string `json:"logo"`
}

type twitchFollow struct {
	Channel TwitchChannel `json:"channel"`
}

type twitchFeatured struct {
	Stream TwitchStream `json:"stream"`
}

// TwitchHost pairs a hosting channel with the channel it currently redirects to.
type TwitchHost struct {
	HostLogin   string `json:"host_login"`
	TargetLogin string `json:"target_login"`
}

// ImagesFor derives every size in [models.ImageSizes] from a 300x300 image URL.
func ImagesFor(url string) models.ImageSet {
	set := make(models.ImageSet, len(models.ImageSizes))
	for _, size := range models.ImageSizes {
		s := strconv.Itoa(size)
		set[size] = strings.ReplaceAll(url, twitchImageToken, s+"x"+s)
	}
	return set
}

// NormalizeChannel maps a channel payload onto a [models.Channel]. It performs no I/O.
func NormalizeChannel(c TwitchChannel) *models.Channel {
	ch := models.NewChannel(c.Name, twitchType)
	ch.Name = c.DisplayName
	ch.URLs = []string{c.URL}
	ch.ArchiveURL = c.URL + twitchArchiveSuffix
	ch.ChatURL = c.URL + twitchChatSuffix
	ch.Title = c.Status
	ch.Category = c.Game
	ch.Intent = twitchIntentPrefix + c.Name
	ch.Mature = c.Mature

	logo := c.Logo
	if logo == "" {
		logo = twitchDefaultAvatar
	}
	ch.Image = ImagesFor(logo)
	return ch
}

// NormalizeStream maps a live stream payload onto a live [models.Channel].
func NormalizeStream(s TwitchStream) *models.Channel {
	ch := NormalizeChannel(s.Channel)
	ch.Live = true
	ch.Viewers = s.Viewers
	ch.Thumbnail = s.Preview.Medium
	return ch
}

// NormalizeUser maps a user profile onto a [models.User] with no favorites.
func NormalizeUser(u TwitchUser) *models.User {
	user := models.NewUser(u.Name, twitchType)
	user.Name = u.DisplayName

	logo := u.Logo
	if logo == "" {
		logo = twitchDefaultAvatar
	}
	user.Image = models.ImageSet{300: logo}
	return user
}

var hostingName = regexp.MustCompile(`^(.+?) hosting .+$`)

// HostingName composes the display name of a channel that is hosting target.
func HostingName(name, target string) string {
	return fmt.Sprintf("%s hosting %s", OriginalName(name), target)
}

// OriginalName strips a [HostingName] decoration.
func OriginalName(name string) string {
	if m := hostingName.FindStringSubmatch(name); len(m) > 1 {
		return m[1]
	}
	return name
}
