// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying a player's signed id.
const CookieName = "player_token"

// Issuer signs and verifies player identity tokens. The token only vouches for an
// opaque player id; there are no accounts behind it.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// ttl is the token lifetime; zero means tokens never expire.
	ttl time.Duration
}

// NewIssuer generates a fresh ed25519 key pair at runtime.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: privateKey, publicKey: publicKey, ttl: ttl}, nil
}

// ParseTokenExpireTime reads a TOKEN_EXPIRE_TIME value. "never", "0" and "" mean no expiry.
func ParseTokenExpireTime(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// CreateJWT creates a signed token with "sub" = playerID.
func (i *Issuer) CreateJWT(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID,
	}
	if i.ttl != 0 {
		claims["exp"] = time.Now().Add(i.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// AuthenticateJWT verifies a token string and returns its "sub" claim.
func (i *Issuer) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	playerID, ok := claims["sub"].(string)
	if !ok || playerID == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return playerID, nil
}

// EnsurePlayerID returns the player id from the request's token cookie. A missing
// or invalid cookie gets a fresh id, set on w. Call it before the response is written.
func (i *Issuer) EnsurePlayerID(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if playerID, err := i.AuthenticateJWT(cookie.Value); err == nil {
			return playerID, nil
		}
	}

	playerID := uuid.NewString()
	token, err := i.CreateJWT(playerID)
	if err != nil {
		return "", fmt.Errorf("failed to create player token: %w", err)
	}
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if i.ttl > 0 {
		cookie.MaxAge = int(i.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return playerID, nil
}
