package models

import "slices"

// ImageSizes are the pixel sizes every provider image is offered in.
var ImageSizes = []int{50, 70, 150, 300}

// ImageSet maps a square pixel size to an image URL.
type ImageSet map[int]string

// Best returns the URL for the largest size at or below max, or the smallest available image.
func (s ImageSet) Best(max int) string {
	best, bestSize := "", 0
	for size, url := range s {
		if size <= max && size > bestSize {
			best, bestSize = url, size
		}
	}
	if best != "" {
		return best
	}
	for _, size := range ImageSizes {
		if url, ok := s[size]; ok {
			return url
		}
	}
	return ""
}

// Channel is one broadcaster's live status and metadata on a provider.
//
// ID is assigned by the entity store and must survive refreshes, so refreshed data is merged with [Channel.Update]
// rather than replacing the value.
type Channel struct {
	ID         int64    `json:"id"`
	Login      string   `json:"login"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	URLs       []string `json:"urls"`
	ArchiveURL string   `json:"archive_url"`
	ChatURL    string   `json:"chat_url"`
	Image      ImageSet `json:"image"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Intent     string   `json:"intent"`
	Mature     bool     `json:"mature"`
	Live       bool     `json:"live"`
	Viewers    int      `json:"viewers"`
	Thumbnail  string   `json:"thumbnail"`
}

// NewChannel creates a channel with identity fields only.
func NewChannel(login, typ string) *Channel {
	return &Channel{Login: login, Type: typ, Image: ImageSet{}}
}

// Key identifies the channel within the working set.
func (c *Channel) Key() string {
	return c.Type + ":" + c.Login
}

// URL returns the primary channel URL.
func (c *Channel) URL() string {
	if len(c.URLs) == 0 {
		return ""
	}
	return c.URLs[0]
}

// Update copies every mutable attribute of from into c. ID, Login and Type are never touched.
func (c *Channel) Update(from *Channel) {
	c.Name = from.Name
	c.URLs = slices.Clone(from.URLs)
	c.ArchiveURL = from.ArchiveURL
	c.ChatURL = from.ChatURL
	c.Image = cloneImages(from.Image)
	c.Title = from.Title
	c.Category = from.Category
	c.Intent = from.Intent
	c.Mature = from.Mature
	c.Live = from.Live
	c.Viewers = from.Viewers
	c.Thumbnail = from.Thumbnail
}

// SetOffline clears live-only attributes.
func (c *Channel) SetOffline() {
	c.Live = false
	c.Viewers = 0
	c.Thumbnail = ""
}

// Clone returns a deep copy.
func (c *Channel) Clone() *Channel {
	cp := *c
	cp.URLs = slices.Clone(c.URLs)
	cp.Image = cloneImages(c.Image)
	return &cp
}

// User is one viewer account on a provider and the channels it favorites.
type User struct {
	ID        int64    `json:"id"`
	Login     string   `json:"login"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Image     ImageSet `json:"image"`
	Favorites []string `json:"favorites"`
}

// NewUser creates a user with identity fields only.
func NewUser(login, typ string) *User {
	return &User{Login: login, Type: typ, Image: ImageSet{}}
}

// Key identifies the user within the working set.
func (u *User) Key() string {
	return u.Type + ":" + u.Login
}

// HasFavorite reports whether login is among the user's favorites.
func (u *User) HasFavorite(login string) bool {
	return slices.Contains(u.Favorites, login)
}

// NewFavorites returns the channels that are not yet in the user's favorites set, in input order.
func (u *User) NewFavorites(channels []*Channel) []*Channel {
	known := make(map[string]struct{}, len(u.Favorites))
	for _, login := range u.Favorites {
		known[login] = struct{}{}
	}

	var added []*Channel
	for _, ch := range channels {
		if _, ok := known[ch.Login]; ok {
			continue
		}
		known[ch.Login] = struct{}{}
		added = append(added, ch)
	}
	return added
}

// SetFavorites replaces the favorites set with the logins of channels.
func (u *User) SetFavorites(channels []*Channel) {
	u.Favorites = Logins(channels)
}

// Update copies the profile attributes of from into u. Favorites are left alone
// so callers can diff against the previous set first.
func (u *User) Update(from *User) {
	u.Name = from.Name
	u.Image = cloneImages(from.Image)
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	cp := *u
	cp.Image = cloneImages(u.Image)
	cp.Favorites = slices.Clone(u.Favorites)
	return &cp
}

// Logins returns the logins of channels in order.
func Logins(channels []*Channel) []string {
	logins := make([]string, 0, len(channels))
	for _, ch := range channels {
		logins = append(logins, ch.Login)
	}
	return logins
}

func cloneImages(src ImageSet) ImageSet {
	dst := make(ImageSet, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
