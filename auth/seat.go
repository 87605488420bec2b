// Package auth issues and checks seat tokens: signed claims tying a
// connection to one color in one game.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wricardo/yinsh/game/engine"
)

// DefaultTTL is how long a seat token stays valid when no TTL is configured
const DefaultTTL = 24 * time.Hour

var (
	ErrNoToken      = errors.New("seat token required")
	ErrInvalidToken = errors.New("invalid seat token")
	ErrWrongGame    = errors.New("seat token is for another game")
)

// Seat is the identity carried by a valid token
type Seat struct {
	GameID    string       `json:"game_id"`
	Color     engine.Color `json:"color"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type seatClaims struct {
	GameID string       `json:"game_id"`
	Color  engine.Color `json:"color"`
	jwt.RegisteredClaims
}

// SeatIssuer signs and verifies HS256 seat tokens
type SeatIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSeatIssuer returns an issuer using secret. A non-positive ttl means DefaultTTL.
func NewSeatIssuer(secret []byte, ttl time.Duration) (*SeatIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("seat secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeatIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token seating color in gameID
func (si *SeatIssuer) Issue(gameID string, color engine.Color) (string, time.Time, error) {
	if color != engine.White && color != engine.Black {
		return "", time.Time{}, fmt.Errorf("unknown color %d", color)
	}
	now := si.now()
	exp := now.Add(si.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, seatClaims{
		GameID: strings.ToLower(gameID),
		Color:  color,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(gameID) + "/" + color.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := token.SignedString(si.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign seat token: %w", err)
	}
	return ss, exp, nil
}

// Parse verifies signature, expiry and claims and returns the seat
func (si *SeatIssuer) Parse(tokenStr string) (*Seat, error) {
	if tokenStr == "" {
		return nil, ErrNoToken
	}

	var claims seatClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return si.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(si.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.GameID == "" {
		return nil, fmt.Errorf("%w: missing game_id", ErrInvalidToken)
	}

	return &Seat{
		GameID:    claims.GameID,
		Color:     claims.Color,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ParseFor is Parse plus a check that the token belongs to gameID
func (si *SeatIssuer) ParseFor(tokenStr, gameID string) (*Seat, error) {
	seat, err := si.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(seat.GameID, gameID) {
		return nil, ErrWrongGame
	}
	return seat, nil
}

// TokenFromRequest reads a bearer token, falling back to the token query
// parameter for websocket clients that cannot set headers
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
