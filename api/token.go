package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiryLeeway is how close to expiry a token may be before it is
// treated as already expired for proactive refresh.
const tokenExpiryLeeway = 30 * time.Second

// expiresWithin reports whether the access token's exp claim falls within
// the given window. The token is decoded without signature verification:
// the client holds no key material and the server remains the authority;
// this only decides whether a refresh is worth attempting up front.
// Unparseable tokens and tokens without an exp claim report false and are
// left for the server to judge.
func expiresWithin(token string, window time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < window
}
