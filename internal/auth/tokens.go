// Package auth issues, verifies, and revokes bearer tokens and WebSocket tickets.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer    = "inkwell-api"
	Audience  = "inkwell-client"
	TokenTTL  = 7 * 24 * time.Hour
	TicketTTL = 30 * time.Second

	blacklistPrefix = "blacklist:"
	ticketPrefix    = "ws_ticket:"
)

// ErrRevocationUnavailable is returned when logout cannot be recorded because Redis is absent.
var ErrRevocationUnavailable = errors.New("token revocation requires redis")

// Claims is the verified content of a bearer token.
type Claims struct {
	UserID    uint
	Role      models.Role
	Name      string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager signs HS256 tokens and tracks revocations and tickets in Redis.
// A nil Redis client disables revocation checks and ticket issuance.
type TokenManager struct {
	secret []byte
	rdb    *redis.Client
	now    func() time.Time
}

// NewTokenManager returns a TokenManager signing with secret.
func NewTokenManager(secret string, rdb *redis.Client) *TokenManager {
	return &TokenManager{secret: []byte(secret), rdb: rdb, now: time.Now}
}

// Issue creates a signed token for user.
func (m *TokenManager) Issue(user *models.User) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := m.now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"name": user.Name,
		"iss":  Issuer,
		"aud":  Audience,
		"exp":  now.Add(TokenTTL).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, including its revocation status.
// All failures are reported as UNAUTHORIZED AppErrors.
func (m *TokenManager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		observability.AuthEvents.WithLabelValues("verify", "invalid").Inc()
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, _ := mc["sub"].(string)
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewUnauthorizedError("Invalid expiry claim")
	}

	role, _ := mc["role"].(string)
	name, _ := mc["name"].(string)
	jti, _ := mc["jti"].(string)

	claims := &Claims{
		UserID:    uint(userID),
		Role:      models.Role(role),
		Name:      name,
		JTI:       jti,
		ExpiresAt: exp.Time,
	}

	if jti != "" && m.rdb != nil {
		n, err := m.rdb.Exists(ctx, blacklistPrefix+jti).Result()
		if err == nil && n > 0 {
			observability.AuthEvents.WithLabelValues("verify", "revoked").Inc()
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return claims, nil
}

// Revoke blacklists the token's JTI until the token would have expired.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.rdb == nil {
		return ErrRevocationUnavailable
	}
	if claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.rdb.Set(ctx, blacklistPrefix+claims.JTI, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IssueTicket mints a single-use WebSocket ticket for userID.
func (m *TokenManager) IssueTicket(ctx context.Context, userID uint) (string, error) {
	if m.rdb == nil {
		return "", errors.New("websocket tickets require redis")
	}
	ticket := uuid.NewString()
	if err := m.rdb.Set(ctx, ticketPrefix+ticket, strconv.FormatUint(uint64(userID), 10), TicketTTL).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return ticket, nil
}

// RedeemTicket consumes a ticket and returns the user it was minted for.
func (m *TokenManager) RedeemTicket(ctx context.Context, ticket string) (uint, error) {
	if m.rdb == nil || ticket == "" {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	val, err := m.rdb.GetDel(ctx, ticketPrefix+ticket).Result()
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	userID, err := strconv.ParseUint(val, 10, 32)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return uint(userID), nil
}
