// Package models defines the entities livewatch keeps in its working set.
//
//   - [Channel] : one broadcaster on a provider with metadata and live status
//   - [User] : a provider account whose followed channels are tracked as favorites
//
// Both are identified by (login, type), and carry a store-assigned ID that must survive refreshes.
// Refreshed data is merged into an existing value with [Channel.Update] and [User.Update] instead of replacing it.
package models
