package scenario

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckSessionToken sanity-checks a bearer token returned by the login
// endpoint. The signature is the target's business, so the parse is
// unverified; only shape and expiry are checked.
func CheckSessionToken(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("scenario: malformed session token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("scenario: bad exp claim: %w", err)
	}
	if exp == nil {
		// No exp claim means a non-expiring session. Accept it.
		return nil
	}
	if !exp.Time.After(now) {
		return fmt.Errorf("scenario: session token expired at %s", exp.Time.Format(time.RFC3339))
	}
	return nil
}
