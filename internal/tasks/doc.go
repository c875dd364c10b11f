// Package tasks implements the channel manager that keeps the working set in sync with providers.
//
// # Core Operations
//
// The [SyncEngine] interface is what presentation layers (CLI, TUI, HTTP API) drive:
//
//  1. Add: [SyncEngine.AddChannel] and [SyncEngine.AddUser] fetch from the provider and insert into the [Store].
//     Adding a user also adds every favorite not yet tracked.
//  2. Remove: [SyncEngine.RemoveChannel] and [SyncEngine.RemoveUser], optionally removing favorites that no
//     other user follows.
//  3. Refresh: [SyncEngine.RefreshChannel], [SyncEngine.RefreshChannels] and [SyncEngine.RefreshFavorites]
//     poll the provider and merge the results into stored entities, keeping their IDs.
//  4. Discovery: [SyncEngine.Search] and [SyncEngine.Featured] pass through to the provider.
//
// # Events
//
// Every change is published as an [Event] to each channel returned by [SyncEngine.Subscribe], in the order it
// happened. Publishing blocks until the subscriber has room or the operation's context ends, so subscribers must
// keep draining. Failures are published as [Error] events carrying a [shared.EntityError].
//
// # Cancellation
//
// A pending add can be cancelled with [SyncEngine.Cancel]. The request still completes, but its result is
// discarded and no event is published.
//
// # Storage
//
// [Store] is implemented by [MemoryStore] for tests and by the sqlite repositories for the CLI.
package tasks
