package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a token when the caller does not override it.
const DefaultTTL = time.Hour

// MinSecretLength is the smallest accepted HS256 key, in bytes.
const MinSecretLength = 32

// Algorithm is the JWS alg of every issued token.
const Algorithm = "HS256"

var (
	// ErrMissingSecret is returned by NewManager when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt: signing secret is missing")
	// ErrWeakSecret is returned by NewManager when the secret is shorter than MinSecretLength.
	ErrWeakSecret = errors.New("jwt: signing secret is too short")
	// ErrInvalidTTL is returned for non-positive token lifetimes.
	ErrInvalidTTL = errors.New("jwt: invalid token ttl")
	// ErrEmptySubject is returned by Issue when the subject is blank.
	ErrEmptySubject = errors.New("jwt: empty subject")

	// ErrMalformed reports a token that is not a structurally valid compact JWS.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrTampered reports a token whose integrity tag does not match its contents.
	ErrTampered = errors.New("jwt: token tampered or forged")
	// ErrExpired reports an authentic token whose expiry is not after the current time.
	ErrExpired = errors.New("jwt: token expired")
)

// Config configures a Manager.
type Config struct {
	Secret []byte
	TTL    time.Duration
	// Now overrides the wall clock. Used by tests.
	Now func() time.Time
}

// Claims is the payload carried by every token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single symmetric secret.
//
// A Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	m := &Manager{
		secret: secret,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	return m, nil
}

// TTL returns the configured default lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subject that expires ttl after now. A zero ttl uses
// the manager default. For a fixed clock and secret the output is deterministic.
func (m *Manager) Issue(subject string, ttl time.Duration) (string, *Claims, error) {
	if strings.TrimSpace(subject) == "" {
		return "", nil, ErrEmptySubject
	}
	if ttl == 0 {
		ttl = m.ttl
	}
	if ttl < 0 {
		return "", nil, ErrInvalidTTL
	}

	now := m.now().Truncate(jwt.TimePrecision)
	claims := &Claims{
		Username: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify authenticates token and returns its claims.
//
// The integrity tag is checked first, over everything before the final '.',
// so any change to the header, payload or tag yields ErrTampered. Strings that
// do not have at least three segments yield ErrMalformed, as do authentic
// tokens whose claims cannot be decoded. Authentic tokens with exp <= now
// yield ErrExpired.
func (m *Manager) Verify(token string) (*Claims, error) {
	if strings.Count(token, ".") < 2 {
		return nil, ErrMalformed
	}

	cut := strings.LastIndexByte(token, '.')
	signingString, encodedSig := token[:cut], token[cut+1:]
	sig, err := m.parser.DecodeSegment(encodedSig)
	if err != nil {
		return nil, ErrTampered
	}
	if err := jwt.SigningMethodHS256.Verify(signingString, sig, m.secret); err != nil {
		return nil, ErrTampered
	}

	claims := &Claims{}
	_, err = m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, ErrMalformed
	}

	if claims.Username == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
