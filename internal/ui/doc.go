// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI shows the working set in two lists:
//  1. [ChannelListView] : channels with live/offline styling, live channels first
//  2. [UserListView] : users with their favorite counts
//
// [InputView] collects a login to add and [ConfirmView] asks whether removing a user also removes its favorites.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg
// union type. Commands run against the sync engine in the background; the lists change only when the engine publishes
// events, which the model reads one at a time from its subscription.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
