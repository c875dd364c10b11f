package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

// Provider synchronizes channels and users with one streaming platform.
type Provider interface {
	// Name returns the human readable platform name.
	Name() string

	// Type returns the provider key stored on every entity it produces.
	Type() string

	Capabilities() Capabilities

	// FetchChannel retrieves a channel's details. It fails with [shared.ErrNotFound] when the platform reports an error.
	FetchChannel(ctx context.Context, login string) (*models.Channel, error)

	// UpdateChannel fetches a channel's details and live status concurrently.
	// Offline channels go through hosting resolution unless ignoreHosted is set.
	UpdateChannel(ctx context.Context, login string, ignoreHosted bool) (*models.Channel, error)

	// RefreshChannels returns one refreshed copy per input channel with the local ID carried over.
	// Inputs are not modified.
	RefreshChannels(ctx context.Context, channels []*models.Channel) ([]*models.Channel, error)

	// FetchUserFavorites retrieves a user's profile and every channel they follow.
	FetchUserFavorites(ctx context.Context, login string) (*models.User, []*models.Channel, error)

	// RefreshFavorites re-fetches every user's favorites and reports each one to onUpdate as it completes.
	// Calls to onUpdate are serialized. Users that fail to refresh are skipped.
	RefreshFavorites(ctx context.Context, users []*models.User, onUpdate func(FavoritesUpdate)) error

	// SearchFeatured searches live channels, or lists featured ones when query is empty.
	// It fails with [shared.ErrNoResults] when nothing matches.
	SearchFeatured(ctx context.Context, query string) ([]*models.Channel, error)
}

// Capabilities are the optional operations a provider supports.
type Capabilities struct {
	Favorites   bool `json:"favorites"`
	Credentials bool `json:"credentials"`
	Featured    bool `json:"featured"`
}

// FavoritesUpdate is the result of refreshing one user.
//
// User carries the new favorites set. NewChannels holds only the channels absent from the previous set.
type FavoritesUpdate struct {
	User        *models.User
	NewChannels []*models.Channel
}

// Providers indexes providers by type.
type Providers map[string]Provider

// NewProviders builds an index of ps.
func NewProviders(ps ...Provider) Providers {
	idx := make(Providers, len(ps))
	for _, p := range ps {
		idx[p.Type()] = p
	}
	return idx
}

// Get returns the provider for typ.
func (p Providers) Get(typ string) (Provider, error) {
	provider, ok := p[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, typ)
	}
	return provider, nil
}

// Types returns the registered provider types in sorted order.
func (p Providers) Types() []string {
	types := make([]string, 0, len(p))
	for typ := range p {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}
