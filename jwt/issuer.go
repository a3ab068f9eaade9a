package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds the signing parameters. Secret is the shared HMAC key.
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
	Leeway    time.Duration
}

// Issuer creates and verifies access tokens. Safe for concurrent use.
type Issuer struct {
	config Config
}

// Claims is the access token claim set. Subject mirrors the email claim;
// ID (jti) links the token to the refresh row issued alongside it.
type Claims struct {
	UserID    string   `json:"uid"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the subset of the account record baked into a token.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Issuer{config: cfg}, nil
}

// Issue signs a new access token for id and returns the compact token plus
// its jti. Roles are copied so later mutation of id.Roles cannot leak into
// the claim set.
func (i *Issuer) Issue(id Identity) (string, string, error) {
	jti := uuid.NewString()
	now := time.Now()

	claims := Claims{
		UserID:    id.UserID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   id.Email,
			Issuer:    i.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}
	if len(id.Roles) > 0 {
		claims.Roles = append([]string(nil), id.Roles...)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(i.config.Secret)
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// Parse fully validates tokenStr: signature, method, lifetime, and the
// configured issuer/audience.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	return i.parse(tokenStr, options)
}

// ExtractExpired verifies the signature and signing method of tokenStr and
// returns its claims without lifetime or issuer/audience validation. See the
// package comment for why this must stay refresh-only.
func (i *Issuer) ExtractExpired(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	}

	return i.parse(tokenStr, options)
}

func (i *Issuer) parse(tokenStr string, options []jwt.ParserOption) (*Claims, error) {
	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
