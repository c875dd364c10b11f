package ui

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChannelListView ViewState = iota
	UserListView
	InputView
	ConfirmView
)

const eventBuffer = 64

// Reader lists the working set for the initial load.
type Reader interface {
	Channels(ctx context.Context, typ string) ([]*models.Channel, error)
	Users(ctx context.Context, typ string) ([]*models.User, error)
}

type pendingAdd struct {
	kind  string
	login string
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	engine      tasks.SyncEngine
	store       Reader
	provider    string
	events      <-chan tasks.Event
	width       int
	height      int
	channels    map[int64]*models.Channel
	users       map[int64]*models.User
	liveOnly    bool
	channelList list.Model
	userList    list.Model
	input       textinput.Model
	inputKind   string
	adding      *pendingAdd
	removing    *models.User
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model and subscribes it to engine events. New channels and users are added on provider.
func NewModel(ctx context.Context, engine tasks.SyncEngine, store Reader, provider string) *Model {
	input := textinput.New()
	input.Placeholder = "login"
	input.CharLimit = 64

	channelList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	channelList.Title = "Channels"
	channelList.SetShowHelp(false)

	userList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	userList.Title = "Users"
	userList.SetShowHelp(false)

	return &Model{
		ctx:         ctx,
		view:        ChannelListView,
		engine:      engine,
		store:       store,
		provider:    provider,
		events:      engine.Subscribe(eventBuffer),
		channels:    map[int64]*models.Channel{},
		users:       map[int64]*models.User{},
		channelList: channelList,
		userList:    userList,
		input:       input,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the working set and starts listening for events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.channelList.SetSize(msg.Width-4, msg.Height-8)
		m.userList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ChannelListView:
			return m.handleChannelKeys(msg)
		case UserListView:
			return m.handleUserKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoaded:
		data := msg.data.(loaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		for _, ch := range data.channels {
			m.channels[ch.ID] = ch
		}
		for _, u := range data.users {
			m.users[u.ID] = u
		}
		return m, m.syncItems()

	case MsgEvent:
		m.apply(msg.data.(tasks.Event))
		return m, tea.Batch(m.syncItems(), m.waitForEvent())

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case MsgCommandDone:
		data := msg.data.(commandDone)
		switch {
		case data.err == nil:
			m.status = data.label + " done"
		case errors.Is(data.err, shared.ErrCancelled):
			m.status = data.label + " cancelled"
		default:
			// failures arrive as Error events
			m.status = ""
		}
		if m.adding != nil && strings.HasSuffix(data.label, m.adding.login) {
			m.adding = nil
		}
		return m, nil
	}
	return m, nil
}

// apply folds one engine event into the local copy of the working set.
func (m *Model) apply(ev tasks.Event) {
	switch ev.Kind {
	case tasks.ChannelAdded, tasks.ChannelUpdated:
		for _, ch := range ev.Channels {
			m.channels[ch.ID] = ch
		}
	case tasks.ChannelRemoved:
		delete(m.channels, ev.ID)
	case tasks.UserAdded, tasks.UserUpdated:
		m.users[ev.User.ID] = ev.User
	case tasks.UserRemoved:
		delete(m.users, ev.ID)
	case tasks.NewChannels:
		m.status = ev.Message
	case tasks.Error:
		m.err = ev.Err
		return
	}
	m.err = nil
}

// syncItems rebuilds both lists: live channels first by viewers, then by name.
func (m *Model) syncItems() tea.Cmd {
	channels := make([]*models.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		if m.liveOnly && !ch.Live {
			continue
		}
		channels = append(channels, ch)
	}
	slices.SortFunc(channels, compareChannels)

	channelItems := make([]list.Item, len(channels))
	for i, ch := range channels {
		channelItems[i] = channelItem{channel: ch}
	}

	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b *models.User) int { return cmp.Compare(a.ID, b.ID) })

	userItems := make([]list.Item, len(users))
	for i, u := range users {
		userItems[i] = userItem{user: u}
	}

	m.channelList.Title = "Channels"
	if m.liveOnly {
		m.channelList.Title = "Live Channels"
	}
	return tea.Batch(m.channelList.SetItems(channelItems), m.userList.SetItems(userItems))
}

func compareChannels(a, b *models.Channel) int {
	if a.Live != b.Live {
		if a.Live {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Viewers, a.Viewers); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChannelListView:
		return m.renderList(m.channelList, m.keys.enter, m.keys.refresh, m.keys.live, m.keys.add, m.keys.remove, m.keys.tab, m.keys.quit)
	case UserListView:
		return m.renderList(m.userList, m.keys.enter, m.keys.refresh, m.keys.add, m.keys.remove, m.keys.tab, m.keys.quit)
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) filtering() bool {
	switch m.view {
	case ChannelListView:
		return m.channelList.FilterState() == list.Filtering
	case UserListView:
		return m.userList.FilterState() == list.Filtering
	}
	return false
}

// handleCommonKeys handles bindings shared by both lists. It reports whether msg was consumed.
func (m *Model) handleCommonKeys(msg tea.KeyMsg, kind string) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.tab):
		if m.view == ChannelListView {
			m.view = UserListView
		} else {
			m.view = ChannelListView
		}
		return nil, true
	case key.Matches(msg, m.keys.add):
		m.inputKind = kind
		m.input.SetValue("")
		m.input.Focus()
		m.view = InputView
		return textinput.Blink, true
	case key.Matches(msg, m.keys.cancel):
		if m.adding != nil {
			m.engine.Cancel(m.adding.kind, m.provider, m.adding.login)
			m.status = "cancelling " + m.adding.login
		}
		return nil, true
	}
	return nil, false
}

func (m *Model) handleChannelKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		return m.updateLists(msg)
	}
	if cmd, ok := m.handleCommonKeys(msg, shared.KindChannel); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.run("refresh channels", func(ctx context.Context) error {
			return m.engine.RefreshChannels(ctx, "")
		})
	case key.Matches(msg, m.keys.live):
		m.liveOnly = !m.liveOnly
		return m, m.syncItems()
	case key.Matches(msg, m.keys.enter):
		if ch := m.selectedChannel(); ch != nil {
			return m, m.run("refresh "+ch.Login, func(ctx context.Context) error {
				_, err := m.engine.RefreshChannel(ctx, ch.ID)
				return err
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if ch := m.selectedChannel(); ch != nil {
			return m, m.run("remove "+ch.Login, func(ctx context.Context) error {
				return m.engine.RemoveChannel(ctx, ch.ID)
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.channelList, cmd = m.channelList.Update(msg)
	return m, cmd
}

func (m *Model) handleUserKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		return m.updateLists(msg)
	}
	if cmd, ok := m.handleCommonKeys(msg, shared.KindUser); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.run("refresh favorites", func(ctx context.Context) error {
			return m.engine.RefreshFavorites(ctx, 0)
		})
	case key.Matches(msg, m.keys.enter):
		if u := m.selectedUser(); u != nil {
			return m, m.run("refresh "+u.Login, func(ctx context.Context) error {
				return m.engine.RefreshFavorites(ctx, u.ID)
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if u := m.selectedUser(); u != nil {
			m.removing = u
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.userList, cmd = m.userList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = m.listView()
		return m, nil
	case tea.KeyEnter:
		login := strings.ToLower(strings.TrimSpace(m.input.Value()))
		m.input.Blur()
		m.view = m.listView()
		if login == "" {
			return m, nil
		}
		return m, m.add(m.inputKind, login)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	u := m.removing
	switch {
	case key.Matches(msg, m.keys.back):
		m.removing = nil
		m.view = UserListView
		return m, nil
	case key.Matches(msg, m.keys.yes), key.Matches(msg, m.keys.no):
		cascade := key.Matches(msg, m.keys.yes)
		m.removing = nil
		m.view = UserListView
		return m, m.run("remove "+u.Login, func(ctx context.Context) error {
			return m.engine.RemoveUser(ctx, u.ID, cascade)
		})
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) listView() ViewState {
	if m.inputKind == shared.KindUser {
		return UserListView
	}
	return ChannelListView
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ChannelListView:
		m.channelList, cmd = m.channelList.Update(msg)
	case UserListView:
		m.userList, cmd = m.userList.Update(msg)
	case InputView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedChannel() *models.Channel {
	if item, ok := m.channelList.SelectedItem().(channelItem); ok {
		return item.channel
	}
	return nil
}

func (m *Model) selectedUser() *models.User {
	if item, ok := m.userList.SelectedItem().(userItem); ok {
		return item.user
	}
	return nil
}

func (m *Model) add(kind, login string) tea.Cmd {
	m.adding = &pendingAdd{kind: kind, login: login}
	return m.run("add "+login, func(ctx context.Context) error {
		if kind == shared.KindUser {
			_, err := m.engine.AddUser(ctx, login, m.provider)
			return err
		}
		_, err := m.engine.AddChannel(ctx, login, m.provider)
		return err
	})
}

// run executes fn in the background and reports completion with [MsgCommandDone].
func (m *Model) run(label string, fn func(context.Context) error) tea.Cmd {
	m.status = label + "..."
	return func() tea.Msg {
		return commandDoneMsg(label, fn(m.ctx))
	}
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		channels, err := m.store.Channels(m.ctx, "")
		if err != nil {
			return loadedMsg(nil, nil, err)
		}
		users, err := m.store.Users(m.ctx, "")
		return loadedMsg(channels, users, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return eventsClosedMsg()
		}
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return eventMsg(ev)
	}
}

func (m *Model) renderTabs() string {
	channels, users := styles.tab.Render("Channels"), styles.tab.Render("Users")
	if m.view == UserListView || (m.view == ConfirmView) {
		users = styles.title.Render("Users")
	} else {
		channels = styles.title.Render("Channels")
	}
	return channels + "  " + users
}

func (m *Model) renderFooter() string {
	var lines []string
	if m.err != nil {
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.status != "" {
		lines = append(lines, styles.status.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderList(l list.Model, bindings ...key.Binding) string {
	helpView := m.help.ShortHelpView(bindings)
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", m.renderTabs(), l.View(), m.renderFooter(), helpView)
}

func (m *Model) renderInput() string {
	title := styles.title.Render(fmt.Sprintf("Add %s on %s", m.inputKind, m.provider))
	confirm := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add"))
	helpView := m.help.ShortHelpView([]key.Binding{confirm, m.keys.back})
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.removing == nil {
		return ""
	}
	title := styles.warn.Render(fmt.Sprintf("Remove %s?", m.removing.Name))
	info := fmt.Sprintf("\nAlso remove the %d favorites no other user follows?\n", len(m.removing.Favorites))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.back})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
