package gateway

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues short-lived bearer tokens for gateway API calls and
// caches them until shortly before expiry.
type TokenService struct {
	accountID string
	apiSecret string
	ttl       time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenService creates a TokenService for the given gateway account
func NewTokenService(accountID, apiSecret string) *TokenService {
	return &TokenService{
		accountID: accountID,
		apiSecret: apiSecret,
		ttl:       time.Hour,
	}
}

// AccessToken returns a cached token, minting a new one when the cached token
// is within a minute of expiry.
func (s *TokenService) AccessToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expires) > time.Minute {
		return s.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": s.accountID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.apiSecret))
	if err != nil {
		return "", err
	}

	s.token = signed
	s.expires = now.Add(s.ttl)
	return signed, nil
}
