package tasks

import (
	"fmt"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

// Event is a change to the working set, published to subscribers in the order it happened.
type Event struct {
	Kind     Kind
	Run      string            // correlation id of the operation that produced the event
	Channels []*models.Channel // ChannelAdded, ChannelUpdated, NewChannels
	User     *models.User      // UserAdded, UserUpdated
	ID       int64             // ChannelRemoved, UserRemoved
	Err      error             // Error; usually a [*shared.EntityError]
	Message  string            // Human-readable message for display
}

// Event kind enumeration
type Kind int

const (
	ChannelAdded Kind = iota
	ChannelUpdated
	ChannelRemoved
	UserAdded
	UserUpdated
	UserRemoved
	NewChannels
	Error
)

func (k Kind) String() string {
	switch k {
	case ChannelAdded:
		return "channel_added"
	case ChannelUpdated:
		return "channel_updated"
	case ChannelRemoved:
		return "channel_removed"
	case UserAdded:
		return "user_added"
	case UserUpdated:
		return "user_updated"
	case UserRemoved:
		return "user_removed"
	case NewChannels:
		return "new_channels"
	case Error:
		return "error"
	default:
		return ""
	}
}

// Entity returns the scoped error carried by an Error event, if any.
func (e Event) Entity() (*shared.EntityError, bool) {
	ee, ok := e.Err.(*shared.EntityError)
	return ee, ok
}

func channelsAddedEvent(run string, channels []*models.Channel) Event {
	msg := fmt.Sprintf("Added %d channels", len(channels))
	if len(channels) == 1 {
		msg = fmt.Sprintf("Added channel %s", channels[0].Login)
	}
	return Event{Kind: ChannelAdded, Run: run, Channels: channels, Message: msg}
}

func channelsUpdatedEvent(run string, channels []*models.Channel) Event {
	live := 0
	for _, ch := range channels {
		if ch.Live {
			live++
		}
	}
	return Event{
		Kind:     ChannelUpdated,
		Run:      run,
		Channels: channels,
		Message:  fmt.Sprintf("Updated %d channels (%d live)", len(channels), live),
	}
}

func channelRemovedEvent(run string, id int64) Event {
	return Event{Kind: ChannelRemoved, Run: run, ID: id, Message: fmt.Sprintf("Removed channel %d", id)}
}

func userAddedEvent(run string, user *models.User) Event {
	return Event{
		Kind:    UserAdded,
		Run:     run,
		User:    user,
		Message: fmt.Sprintf("Added user %s with %d favorites", user.Login, len(user.Favorites)),
	}
}

func userUpdatedEvent(run string, user *models.User) Event {
	return Event{Kind: UserUpdated, Run: run, User: user, Message: fmt.Sprintf("Updated user %s", user.Login)}
}

func userRemovedEvent(run string, id int64) Event {
	return Event{Kind: UserRemoved, Run: run, ID: id, Message: fmt.Sprintf("Removed user %d", id)}
}

func newChannelsEvent(run string, user *models.User, channels []*models.Channel) Event {
	return Event{
		Kind:     NewChannels,
		Run:      run,
		User:     user,
		Channels: channels,
		Message:  fmt.Sprintf("%s favorited %d new channels", user.Login, len(channels)),
	}
}

func errorEvent(run string, err error) Event {
	return Event{Kind: Error, Run: run, Err: err, Message: err.Error()}
}
