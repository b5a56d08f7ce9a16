package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/unimaker/paygate/pkg/config"
)

// RevealTokenPayload binds a reveal grant to one order, buyer and
// payment profile. The token never carries the rails themselves.
type RevealTokenPayload struct {
	OrderID   uuid.UUID
	BuyerID   uuid.UUID
	ProfileID uuid.UUID
}

type revealClaims struct {
	OrderID   string `json:"orderId"`
	ProfileID string `json:"profileId"`
	jwt.RegisteredClaims
}

// MintRevealToken issues a short-lived HS256 token scoping rail access
// to a single order.
func MintRevealToken(cfg config.RevealConfig, now time.Time, payload RevealTokenPayload) (string, time.Time, error) {
	if cfg.TokenSecret == "" {
		return "", time.Time{}, fmt.Errorf("reveal token secret not configured")
	}
	expiresAt := now.Add(cfg.TTL)
	claims := revealClaims{
		OrderID:   payload.OrderID.String(),
		ProfileID: payload.ProfileID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.TokenIssuer,
			Subject:   payload.BuyerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing reveal token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseRevealToken validates signature, issuer and expiry, and returns
// the order scope the token was minted for.
func ParseRevealToken(cfg config.RevealConfig, raw string) (RevealTokenPayload, error) {
	if cfg.TokenSecret == "" {
		return RevealTokenPayload{}, fmt.Errorf("reveal token secret not configured")
	}
	var claims revealClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(cfg.TokenSecret), nil
		},
		jwt.WithIssuer(cfg.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return RevealTokenPayload{}, fmt.Errorf("parsing reveal token: %w", err)
	}
	orderID, err := uuid.Parse(claims.OrderID)
	if err != nil {
		return RevealTokenPayload{}, fmt.Errorf("invalid order id claim: %w", err)
	}
	buyerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return RevealTokenPayload{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	profileID, err := uuid.Parse(claims.ProfileID)
	if err != nil {
		return RevealTokenPayload{}, fmt.Errorf("invalid profile id claim: %w", err)
	}
	return RevealTokenPayload{OrderID: orderID, BuyerID: buyerID, ProfileID: profileID}, nil
}
