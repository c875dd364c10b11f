package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/livewatch/internal/models"
)

var (
	_ list.Item = channelItem{}
	_ list.Item = userItem{}
)

// channelItem wraps [models.Channel] to implement [list.Item].
type channelItem struct {
	channel *models.Channel
}

func (i channelItem) FilterValue() string { return i.channel.Name + " " + i.channel.Login }
func (i channelItem) Title() string {
	if i.channel.Live {
		return styles.live.Render("●") + " " + i.channel.Name
	}
	return styles.help.Render("○") + " " + i.channel.Name
}

func (i channelItem) Description() string {
	if !i.channel.Live {
		return "offline"
	}

	parts := []string{i.channel.Title}
	if i.channel.Category != "" {
		parts = append(parts, i.channel.Category)
	}
	parts = append(parts, fmt.Sprintf("%d viewers", i.channel.Viewers))
	return strings.Join(parts, " • ")
}

// userItem wraps [models.User] to implement [list.Item].
type userItem struct {
	user *models.User
}

func (i userItem) FilterValue() string { return i.user.Name + " " + i.user.Login }
func (i userItem) Title() string       { return i.user.Name }
func (i userItem) Description() string {
	return fmt.Sprintf("%s • %d favorites", i.user.Type, len(i.user.Favorites))
}
