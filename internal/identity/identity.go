package identity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNotSignedIn is returned when no valid identity can be derived from a token.
var ErrNotSignedIn = errors.New("not signed in")

// User is the identity carried by a verified token.
type User struct {
	ID    string
	Email string
	Name  string
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Gateway verifies bearer tokens issued by the sign-in provider and tracks
// sign-outs. It is constructed once in main and passed down; there is no
// package-level state.
type Gateway struct {
	secret []byte

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

func NewGateway(secret []byte) *Gateway {
	return &Gateway{
		secret:  secret,
		revoked: make(map[string]time.Time),
	}
}

// CurrentUser verifies tokenString and returns the identity it carries.
// Expired, malformed, and signed-out tokens all yield ErrNotSignedIn.
func (g *Gateway) CurrentUser(tokenString string) (*User, error) {
	c, err := g.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if g.isRevoked(c.ID) {
		return nil, ErrNotSignedIn
	}

	return &User{ID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// SignOut revokes the token until its natural expiry. Revoking an already
// signed-out token is not an error.
func (g *Gateway) SignOut(tokenString string) error {
	c, err := g.parse(tokenString)
	if err != nil {
		return err
	}

	expiry := time.Now().Add(24 * time.Hour)
	if c.ExpiresAt != nil {
		expiry = c.ExpiresAt.Time
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune()
	g.revoked[c.ID] = expiry
	return nil
}

// IssueToken signs a token for user, valid for ttl. Used by development
// tooling and tests; production tokens come from the sign-in provider.
func (g *Gateway) IssueToken(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (g *Gateway) parse(tokenString string) (*claims, error) {
	if tokenString == "" {
		return nil, ErrNotSignedIn
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{},
		func(t *jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !token.Valid {
		return nil, ErrNotSignedIn
	}

	c, ok := token.Claims.(*claims)
	if !ok {
		return nil, ErrNotSignedIn
	}
	return c, nil
}

func (g *Gateway) isRevoked(tokenID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune()
	_, revoked := g.revoked[tokenID]
	return revoked
}

// prune drops revocation entries for tokens past their expiry. Callers must
// hold g.mu.
func (g *Gateway) prune() {
	now := time.Now()
	for id, expiry := range g.revoked {
		if now.After(expiry) {
			delete(g.revoked, id)
		}
	}
}
