package bluelink

import "context"

// SessionController owns one account's token state machine. One concrete implementation exists per
// region; all of them mutate their Session only from within Login, RefreshAccessToken, and the
// PIN-elevation step.
type SessionController interface {
	// Login authenticates the account and populates the session's tokens.
	Login(ctx context.Context) error

	// Logout invalidates the session where the region supports it.
	Logout(ctx context.Context) error

	// GetVehicles discovers the account's enrolled vehicles, building one dispatcher per
	// entry. Discovery is idempotent: repeated calls return the same identity set keyed by
	// VIN. An absent vehicle list yields an empty slice, not an error.
	GetVehicles(ctx context.Context) ([]Vehicle, error)

	// RefreshAccessToken refreshes the access token when it is within RefreshWindow of
	// expiry. Failures are reported in the result, not as errors, so dependent calls can
	// proceed and surface the real failure.
	RefreshAccessToken(ctx context.Context) RefreshResult

	// Session exposes the current token state for inspection. Callers must not mutate it.
	Session() *Session

	// Config returns the normalized account configuration the controller was built with.
	Config() AccountConfig
}
