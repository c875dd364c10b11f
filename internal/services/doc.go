// Package services defines the [Provider] interface for live streaming platforms and implements it for Twitch.
//
// # Provider Interface
//
// Every platform exposes the same channel and user operations so the sync engine can treat them uniformly.
// Optional features are advertised through [Capabilities]; the engine checks them before calling
// [Provider.FetchUserFavorites] or [Provider.SearchFeatured].
//
// # Twitch Implementation
//
// [TwitchService] talks to the kraken API through a shared [queue.Queue]. Single-entity lookups use the
// high priority tier and bulk polling the low one, so interactive commands are never stuck behind a refresh.
// Every request carries the Client-ID and Accept headers kraken requires. When a client secret is configured,
// the HTTP client also attaches a bearer token from [golang.org/x/oauth2/clientcredentials].
//
// Offline channels may be hosting someone else. Hosting resolution looks up the host target through the hosts
// endpoint and, when the target is live, copies its stream onto the offline channel under a "<name> hosting
// <target>" display name. Numeric channel IDs needed by that endpoint are memoized in an [IDCache].
//
// # Normalization
//
// Raw kraken payloads ([TwitchChannel], [TwitchStream], [TwitchUser], [TwitchHost]) are converted to
// [models.Channel] and [models.User] by [NormalizeChannel], [NormalizeStream] and [NormalizeUser].
//
// # Error Handling
//
// Failures are wrapped in [shared.EntityError] so callers can tell which channel or user failed:
//   - [shared.ErrNotFound] : the platform reported an error for the login
//   - [shared.ErrNoResults] : a search or featured listing came back empty
//   - [shared.ErrUnsupported] : the capability is missing
//   - [shared.ErrAPIRequest] : the request failed after retries
package services
