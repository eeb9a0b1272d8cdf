package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const defaultSeatTokenTTL = time.Hour

// SeatClaims is the verified content of a seat token.
type SeatClaims struct {
	UserID  string
	MatchID string
	Seat    int
}

// TokenService issues and verifies signed seat tokens so a reconnecting
// client can reclaim its seat in a running match.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

// NewTokenService constructs a TokenService. ttl of zero uses the default
// one hour lifetime.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultSeatTokenTTL
	}
	return &TokenService{secret: secret, issuer: issuer, ttl: ttl}
}

// GenerateSeatToken signs a token binding a user to a seat in a match.
func (s *TokenService) GenerateSeatToken(userID, matchID string, seat int) (string, error) {
	if s == nil || s.secret == "" {
		return "", fmt.Errorf("token service is not configured")
	}
	if userID == "" || matchID == "" {
		return "", fmt.Errorf("user and match are required")
	}
	if seat != 1 && seat != 2 {
		return "", fmt.Errorf("seat must be 1 or 2, got %d", seat)
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  userID,
		"exp":  time.Now().Add(s.ttl).Unix(),
		"mid":  matchID,
		"seat": seat,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// ParseSeatToken verifies a seat token's signature and expiry and returns
// its claims.
func (s *TokenService) ParseSeatToken(tokenString string) (SeatClaims, error) {
	if s == nil || s.secret == "" {
		return SeatClaims{}, fmt.Errorf("token service is not configured")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return SeatClaims{}, fmt.Errorf("invalid seat token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SeatClaims{}, fmt.Errorf("invalid seat token claims")
	}
	if s.issuer != "" && claims["iss"] != s.issuer {
		return SeatClaims{}, fmt.Errorf("seat token issuer mismatch")
	}

	sub, _ := claims["sub"].(string)
	mid, _ := claims["mid"].(string)
	seatF, _ := claims["seat"].(float64)
	seat := int(seatF)
	if sub == "" || mid == "" || (seat != 1 && seat != 2) {
		return SeatClaims{}, fmt.Errorf("seat token claims incomplete")
	}

	return SeatClaims{UserID: sub, MatchID: mid, Seat: seat}, nil
}
