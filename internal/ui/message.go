package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoaded MsgKind = iota
	MsgEvent
	MsgEventsClosed
	MsgCommandDone
)

type loaded struct {
	channels []*models.Channel
	users    []*models.User
	err      error
}

type commandDone struct {
	label string
	err   error
}

// loadedMsg is the constructor for [MsgLoaded]
func loadedMsg(channels []*models.Channel, users []*models.User, err error) Msg {
	return Msg{kind: MsgLoaded, data: loaded{channels, users, err}}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(ev tasks.Event) Msg {
	return Msg{kind: MsgEvent, data: ev}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(label string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandDone{label, err}}
}
