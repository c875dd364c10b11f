// Package repositories implements SQLite persistence for channels and users.
//
// [ChannelRepository] and [UserRepository] each own one table. [Store] combines them into the entity store used by
// the sync engine and adds the cross-table operations, such as removing a user together with the favorites nobody
// else follows. Channels and users are unique per (login, type); image sets, URLs and favorites are stored as JSON.
package repositories
