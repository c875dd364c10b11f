package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

// Store persists the working set. Implementations assign IDs on add and enforce one entity per (login, type).
//
// Lookups of unknown entities fail with [shared.ErrNotFound]; adding a duplicate fails with [shared.ErrAlreadyExists].
type Store interface {
	// Channels lists channels of typ, or all channels when typ is empty.
	Channels(ctx context.Context, typ string) ([]*models.Channel, error)
	Channel(ctx context.Context, id int64) (*models.Channel, error)
	ChannelByLogin(ctx context.Context, login, typ string) (*models.Channel, error)
	AddChannel(ctx context.Context, ch *models.Channel) error
	UpdateChannel(ctx context.Context, ch *models.Channel) error
	RemoveChannel(ctx context.Context, id int64) error

	// Users lists users of typ, or all users when typ is empty.
	Users(ctx context.Context, typ string) ([]*models.User, error)
	User(ctx context.Context, id int64) (*models.User, error)
	UserByLogin(ctx context.Context, login, typ string) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error

	// RemoveUser deletes a user. With cascade, favorites that no other user of the same type still favorites are
	// removed too and their IDs returned.
	RemoveUser(ctx context.Context, id int64, cascade bool) ([]int64, error)
}

// MemoryStore is an in-process [Store]. Values are copied in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	channels map[int64]*models.Channel
	users    map[int64]*models.User
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{channels: map[int64]*models.Channel{}, users: map[int64]*models.User{}}
}

func (s *MemoryStore) Channels(_ context.Context, typ string) ([]*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		if typ == "" || ch.Type == typ {
			out = append(out, ch.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Channel) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Channel(_ context.Context, id int64) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", shared.ErrNotFound, id)
	}
	return ch.Clone(), nil
}

func (s *MemoryStore) ChannelByLogin(_ context.Context, login, typ string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ch := s.channelByLoginLocked(login, typ); ch != nil {
		return ch.Clone(), nil
	}
	return nil, fmt.Errorf("%w: channel %s", shared.ErrNotFound, login)
}

func (s *MemoryStore) channelByLoginLocked(login, typ string) *models.Channel {
	for _, ch := range s.channels {
		if ch.Login == login && ch.Type == typ {
			return ch
		}
	}
	return nil
}

func (s *MemoryStore) AddChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channelByLoginLocked(ch.Login, ch.Type) != nil {
		return fmt.Errorf("%w: channel %s", shared.ErrAlreadyExists, ch.Login)
	}
	s.nextID++
	ch.ID = s.nextID
	s.channels[ch.ID] = ch.Clone()
	return nil
}

func (s *MemoryStore) UpdateChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[ch.ID]; !ok {
		return fmt.Errorf("%w: channel %d", shared.ErrNotFound, ch.ID)
	}
	s.channels[ch.ID] = ch.Clone()
	return nil
}

func (s *MemoryStore) RemoveChannel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[id]; !ok {
		return fmt.Errorf("%w: channel %d", shared.ErrNotFound, id)
	}
	delete(s.channels, id)
	return nil
}

func (s *MemoryStore) Users(_ context.Context, typ string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if typ == "" || u.Type == typ {
			out = append(out, u.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) User(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return u.Clone(), nil
}

func (s *MemoryStore) UserByLogin(_ context.Context, login, typ string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.userByLoginLocked(login, typ); u != nil {
		return u.Clone(), nil
	}
	return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, login)
}

func (s *MemoryStore) userByLoginLocked(login, typ string) *models.User {
	for _, u := range s.users {
		if u.Login == login && u.Type == typ {
			return u
		}
	}
	return nil
}

func (s *MemoryStore) AddUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByLoginLocked(u.Login, u.Type) != nil {
		return fmt.Errorf("%w: user %s", shared.ErrAlreadyExists, u.Login)
	}
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, u.ID)
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) RemoveUser(_ context.Context, id int64, cascade bool) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	delete(s.users, id)
	if !cascade {
		return nil, nil
	}

	var removed []int64
	for _, login := range u.Favorites {
		if s.favoritedLocked(login, u.Type) {
			continue
		}
		if ch := s.channelByLoginLocked(login, u.Type); ch != nil {
			delete(s.channels, ch.ID)
			removed = append(removed, ch.ID)
		}
	}
	return removed, nil
}

func (s *MemoryStore) favoritedLocked(login, typ string) bool {
	for _, u := range s.users {
		if u.Type == typ && u.HasFavorite(login) {
			return true
		}
	}
	return false
}
