package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	domain "github.com/freightdesk/api/internal/domain"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrTokenExpired signals that the presented bearer token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the presented bearer token failed verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

type adminClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// now is injected before parsing so time-based claims validate against
	// the manager's clock. json ignores unexported fields.
	now func() time.Time
}

// Valid replaces the embedded RegisteredClaims validation, which is pinned to
// the package-level jwt.TimeFunc and cannot observe an injected clock.
func (c *adminClaims) Valid() error {
	now := time.Now()
	if c.now != nil {
		now = c.now()
	}
	if !c.VerifyExpiresAt(now, true) {
		return jwt.ErrTokenExpired
	}
	if !c.VerifyNotBefore(now, false) {
		return jwt.ErrTokenNotValidYet
	}
	if !c.VerifyIssuedAt(now, false) {
		return jwt.ErrTokenUsedBeforeIssued
	}
	return nil
}

// JWTManager issues and verifies HMAC-signed bearer tokens for admin sessions.
type JWTManager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	clock      func() time.Time
}

// JWTOption customises JWTManager behaviour.
type JWTOption func(*JWTManager)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) JWTOption {
	return func(m *JWTManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIssuer overrides the iss claim stamped on issued tokens.
func WithIssuer(issuer string) JWTOption {
	return func(m *JWTManager) {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithClock overrides the time source used for verification.
func WithClock(clock func() time.Time) JWTOption {
	return func(m *JWTManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewJWTManager constructs a JWTManager from the shared signing key.
func NewJWTManager(signingKey string, opts ...JWTOption) (*JWTManager, error) {
	signingKey = strings.TrimSpace(signingKey)
	if signingKey == "" {
		return nil, errors.New("auth: signing key is required")
	}

	m := &JWTManager{
		signingKey: []byte(signingKey),
		issuer:     "freightdesk-api",
		ttl:        defaultTokenTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Issue signs a bearer token for the admin, returning its expiry alongside.
func (m *JWTManager) Issue(admin domain.Admin, now time.Time) (string, time.Time, error) {
	if admin.ID == "" {
		return "", time.Time{}, errors.New("auth: admin id is required")
	}
	if now.IsZero() {
		now = m.clock()
	}
	now = now.UTC()
	expiresAt := now.Add(m.ttl)

	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: admin.Email,
		Role:  string(admin.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a bearer token, returning the embedded identity.
func (m *JWTManager) Verify(tokenStr string) (*Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	claims := &adminClaims{now: m.clock}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return m.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &Identity{
		AdminID: claims.Subject,
		Email:   claims.Email,
		Role:    normaliseRole(claims.Role),
	}, nil
}
