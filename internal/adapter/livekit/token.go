// Package livekit signs LiveKit room access tokens.
package livekit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant mirrors the "video" claim LiveKit servers expect.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	RoomAdmin      bool   `json:"roomAdmin,omitempty"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type Claims struct {
	Name     string     `json:"name,omitempty"`
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer implements usecase.RoomTokenIssuer.
type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
	serverURL string
}

func NewTokenIssuer(cfg config.LiveKitConfig) (*TokenIssuer, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.URL == "" {
		return nil, errors.New("livekit url, api key and api secret are required")
	}
	return &TokenIssuer{apiKey: cfg.APIKey, apiSecret: []byte(cfg.APISecret), serverURL: cfg.URL}, nil
}

func (t *TokenIssuer) ServerURL() string {
	return t.serverURL
}

func (t *TokenIssuer) Issue(grant usecase.RoomGrant) (string, error) {
	if grant.Room == "" || grant.Identity == "" {
		return "", errors.New("room and identity are required")
	}
	meta, err := json.Marshal(map[string]string{"role": string(grant.Role)})
	if err != nil {
		return "", err
	}
	claims := Claims{
		Name: grant.Name,
		Video: VideoGrant{
			Room:           grant.Room,
			RoomJoin:       true,
			RoomAdmin:      grant.IsModerator,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		Metadata: string(meta),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   grant.Identity,
			ID:        grant.Identity,
			NotBefore: jwt.NewNumericDate(grant.NotBefore),
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return signed, nil
}
