package bluelink

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshWindow is how far ahead of access-token expiry a refresh is attempted.
const RefreshWindow = 10 * time.Second

// Session holds one account's token state. It is mutated only by its owning SessionController
// during login, refresh, and PIN entry; vehicle dispatchers read it but never write it.
type Session struct {
	AccessToken  string
	RefreshToken string

	// ControlToken is the PIN-elevated credential required for privileged commands in regions
	// that use one (EU/AU). It has its own, shorter expiry.
	ControlToken string

	// DeviceID is the client identifier minted (and possibly reassigned by the server) during
	// device registration.
	DeviceID string

	TokenExpiresAt        time.Time
	ControlTokenExpiresAt time.Time
}

// TokenShouldRefresh reports whether the access token is within RefreshWindow of expiry or already
// expired at the given instant.
func (s *Session) TokenShouldRefresh(now time.Time) bool {
	return now.Sub(s.TokenExpiresAt) >= -RefreshWindow
}

// ControlTokenValid reports whether a control token is present and unexpired.
func (s *Session) ControlTokenValid(now time.Time) bool {
	return s.ControlToken != "" && now.Before(s.ControlTokenExpiresAt)
}

// RefreshOutcome classifies the result of RefreshAccessToken. Refresh failures are advisory:
// dispatcher calls proceed and let the main operation surface the real failure.
type RefreshOutcome int

const (
	// RefreshNotNeeded means the token was fresh enough that no network call was made.
	RefreshNotNeeded RefreshOutcome = iota
	// RefreshPerformed means the session was updated with a new access token.
	RefreshPerformed
	// RefreshFailed means refresh was attempted (or impossible) and did not succeed.
	RefreshFailed
)

// RefreshResult reports what a refresh attempt did. Reason is populated for RefreshFailed.
type RefreshResult struct {
	Outcome RefreshOutcome
	Reason  string
}

func (r RefreshResult) String() string {
	switch r.Outcome {
	case RefreshNotNeeded:
		return "token not expired, no need to refresh"
	case RefreshPerformed:
		return "token refreshed"
	default:
		if r.Reason == "" {
			return "token refresh failed"
		}
		return "token refresh failed: " + r.Reason
	}
}

// TokenExpiry computes an access token's expiry from an expires_in value, falling back to the JWT
// exp claim when the token response omits it. When neither is available the token is treated as
// already expired so the next call forces a refresh.
func TokenExpiry(now time.Time, expiresIn int64, accessToken string) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	if accessToken != "" {
		parser := jwt.NewParser()
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(accessToken, claims); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				return exp.Time
			}
		}
	}
	return now
}
