package auth

import (
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL applies when Issue is called without a positive ttl.
const DefaultTokenTTL = 15 * time.Minute

// ErrInvalidToken is returned for every validation failure: bad signature,
// expiry, malformed input and missing subject are not distinguished.
var ErrInvalidToken = errors.New("could not validate credentials")

// TokenService issues and validates signed, time-limited bearer tokens.
// It keeps no state besides its keys, so any replica sharing the secret
// can validate tokens issued by any other.
type TokenService struct {
	method     jwt.SigningMethod
	signKey    interface{}
	verifyKey  interface{}
	bcryptCost int
	now        func() time.Time
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// WithBcryptCost sets the cost used by HashPassword.
func WithBcryptCost(cost int) Option {
	return func(s *TokenService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// NewTokenService builds a service for the named JWS algorithm. HMAC
// algorithms use secret as the key; RSA, ECDSA and EdDSA algorithms expect
// secret to hold a PEM encoded private key.
func NewTokenService(secret, algorithm string, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("signing secret must be provided")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		method = jwt.GetSigningMethod(strings.ToUpper(algorithm))
	}
	if method == nil || method == jwt.SigningMethodNone {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	s := &TokenService{
		method:     method,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}

	if _, ok := method.(*jwt.SigningMethodHMAC); ok {
		s.signKey = []byte(secret)
		s.verifyKey = []byte(secret)
	} else {
		signKey, verifyKey, err := parsePrivateKey([]byte(secret))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s key: %w", method.Alg(), err)
		}
		s.signKey = signKey
		s.verifyKey = verifyKey
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Algorithm returns the configured JWS algorithm name.
func (s *TokenService) Algorithm() string {
	return s.method.Alg()
}

// Issue signs a token for subject that expires after ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry and returns the subject claim.
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return s.verifyKey, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// HashPassword returns the bcrypt hash of plain.
func (s *TokenService) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares plain against a bcrypt hash.
func (s *TokenService) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func parsePrivateKey(pemBytes []byte) (interface{}, interface{}, error) {
	key, err := jwk.ParseKey(pemBytes, jwk.WithPEM(true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse PEM key: %w", err)
	}

	var private interface{}
	if err := key.Raw(&private); err != nil {
		return nil, nil, fmt.Errorf("failed to get raw key: %w", err)
	}
	if _, ok := private.(crypto.Signer); !ok {
		return nil, nil, errors.New("key is not a private key")
	}

	publicKey, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	var public interface{}
	if err := publicKey.Raw(&public); err != nil {
		return nil, nil, fmt.Errorf("failed to get raw public key: %w", err)
	}

	return private, public, nil
}
