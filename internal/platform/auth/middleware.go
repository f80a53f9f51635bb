package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserRolesKey  contextKey = "user_roles"
	FacilityIDKey contextKey = "facility_id"
)

type Claims struct {
	jwt.RegisteredClaims
	TenantID   string   `json:"tenant_id"`
	FacilityID string   `json:"facility_id"`
	Roles      []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey is used for development/testing only
	SigningKey []byte
}

// JWKSKey represents a single JSON Web Key from a JWKS endpoint.
type JWKSKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse represents the response from a JWKS endpoint.
type JWKSResponse struct {
	Keys []JWKSKey `json:"keys"`
}

// JWKSCache caches JWKS keys fetched from a remote endpoint with a configurable TTL.
type JWKSCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	jwksURL   string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

// NewJWKSCache creates a new JWKS cache that fetches keys from the given URL.
func NewJWKSCache(jwksURL string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		keys:    make(map[string]*rsa.PublicKey),
		jwksURL: jwksURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the RSA public key for the given kid.
// It fetches keys from the JWKS endpoint if the cache is expired or if the kid is not found.
func (c *JWKSCache) GetKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

// fetch retrieves the JWKS from the remote endpoint and updates the cache.
func (c *JWKSCache) fetch() error {
	resp, err := c.client.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKSResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

// parseRSAPublicKey converts a JWKSKey to an *rsa.PublicKey.
func parseRSAPublicKey(k JWKSKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// defaultJWKSCacheTTL is the default time-to-live for cached JWKS keys.
const defaultJWKSCacheTTL = 5 * time.Minute

// jwksKeyFunc returns a jwt.Keyfunc that fetches public keys from a JWKS endpoint.
// Keys are cached in memory and automatically refreshed on cache miss or TTL expiry.
func jwksKeyFunc(jwksURL string) jwt.Keyfunc {
	cache := NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.GetKey(kid)
	}
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			tokenStr := parts[1]
			claims := &Claims{}

			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256", "HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			var token *jwt.Token
			var err error

			if len(cfg.SigningKey) > 0 {
				// Dev mode: HMAC signing key
				token, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
					return cfg.SigningKey, nil
				}, opts...)
			} else {
				// Production: JWKS validation
				token, err = jwt.ParseWithClaims(tokenStr, claims, jwksKeyFunc(cfg.JWKSURL), opts...)
			}

			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			// Set values on echo context for tenant middleware
			c.Set("jwt_tenant_id", claims.TenantID)

			// Set values on request context
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
			ctx = context.WithValue(ctx, FacilityIDKey, claims.FacilityID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without a token get a default admin identity; requests carrying a bearer
// token have its claims decoded without signature verification, so local
// tokens can exercise role checks.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := devClaims(c.Request().Header.Get("Authorization"))
			c.Set("jwt_tenant_id", claims.TenantID)
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRolesKey, claims.Roles)
			if claims.FacilityID != "" {
				ctx = context.WithValue(ctx, FacilityIDKey, claims.FacilityID)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// devClaims decodes a bearer token's claims without verifying the signature.
// Anything unusable falls back to the development defaults.
func devClaims(authHeader string) *Claims {
	defaults := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev-user"},
		TenantID:         "default",
		Roles:            []string{"admin"},
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return defaults
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(parts[1], claims); err != nil || claims.Subject == "" {
		return defaults
	}
	if claims.TenantID == "" {
		claims.TenantID = "default"
	}
	if len(claims.Roles) == 0 {
		claims.Roles = []string{"admin"}
	}
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// FacilityFromContext returns the caller's facility scope, if any.
func FacilityFromContext(ctx context.Context) string {
	fid, _ := ctx.Value(FacilityIDKey).(string)
	return fid
}
