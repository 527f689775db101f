package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant mirrors the media server's room permission claim.
type VideoGrant struct {
	Room          string `json:"room,omitempty"`
	RoomJoin      bool   `json:"roomJoin,omitempty"`
	RoomCreate    bool   `json:"roomCreate,omitempty"`
	RoomAdmin     bool   `json:"roomAdmin,omitempty"`
	CanPublish    bool   `json:"canPublish,omitempty"`
	CanSubscribe  bool   `json:"canSubscribe,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name     string     `json:"name,omitempty"`
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
}

// TokenService mints room access tokens for the realtime media server.
type TokenService struct {
	apiKey    string
	apiSecret string
	url       string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(apiKey, apiSecret, url string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenService{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		url:       url,
		ttl:       ttl,
		now:       time.Now,
	}
}

// URL returns the media server endpoint clients should connect to.
func (s *TokenService) URL() string { return s.url }

// Mint signs an access token granting full participant rights in roomName.
// roomAdmin is included so joining triggers agent dispatch, matching the
// permission set the interview frontend expects.
func (s *TokenService) Mint(roomName, identity, displayName, metadata string) (string, error) {
	if strings.TrimSpace(s.apiKey) == "" || strings.TrimSpace(s.apiSecret) == "" {
		return "", fmt.Errorf("token service: signing credentials not configured")
	}
	if strings.TrimSpace(roomName) == "" {
		return "", fmt.Errorf("token service: room name is required")
	}
	if strings.TrimSpace(identity) == "" {
		return "", fmt.Errorf("token service: identity is required")
	}

	issuedAt := s.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
		Name: displayName,
		Video: VideoGrant{
			Room:         roomName,
			RoomJoin:     true,
			RoomCreate:   true,
			RoomAdmin:    true,
			CanPublish:   true,
			CanSubscribe: true,
		},
		Metadata: metadata,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.apiSecret))
	if err != nil {
		return "", fmt.Errorf("token service: sign: %w", err)
	}
	return signed, nil
}

// NewRoomName returns a unique room name in the interview-<millis> form the
// frontend pattern-matches on.
func (s *TokenService) NewRoomName() string {
	return fmt.Sprintf("interview-%d", s.now().UnixMilli())
}

// ParticipantIdentity derives a url-safe identity from a display name.
func ParticipantIdentity(displayName string) string {
	return strings.Join(strings.Fields(strings.ToLower(displayName)), "-")
}
