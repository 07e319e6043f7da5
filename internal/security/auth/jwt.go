package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

const (
	DefaultAlgorithm = "HS256"
	DefaultIssuer    = "eventcrm"
	DefaultTokenTTL  = 24 * time.Hour
)

var (
	// ErrInvalidToken covers bad signatures, malformed input, expiry and bad claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnsupportedAlgorithm is returned for any algorithm outside the HMAC/RSA/ECDSA allow-list.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

var allowedMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
	"ES256": jwt.SigningMethodES256,
	"ES384": jwt.SigningMethodES384,
	"ES512": jwt.SigningMethodES512,
}

// Claims is the verified identity carried by a session token.
type Claims struct {
	Subject    int64             `json:"sub"`
	Department domain.Department `json:"department"`
	ExpiresAt  *jwt.NumericDate  `json:"exp"`
	IssuedAt   *jwt.NumericDate  `json:"iat,omitempty"`
	Issuer     string            `json:"iss,omitempty"`
	ID         string            `json:"jti,omitempty"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
func (c Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.Subject, 10), nil
}

// Options configures a TokenManager.
type Options struct {
	Algorithm     string
	Secret        string
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Issuer        string
	TTL           time.Duration
	Now           func() time.Time
}

type TokenManager struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenManager validates the signing configuration. Any error here is meant to stop startup.
func NewTokenManager(opts Options) (*TokenManager, error) {
	alg := strings.ToUpper(strings.TrimSpace(opts.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := allowedMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, opts.Algorithm)
	}

	tm := &TokenManager{
		method: method,
		issuer: opts.Issuer,
		ttl:    opts.TTL,
		now:    opts.Now,
	}
	if tm.issuer == "" {
		tm.issuer = DefaultIssuer
	}
	if tm.ttl <= 0 {
		tm.ttl = DefaultTokenTTL
	}
	if tm.now == nil {
		tm.now = time.Now
	}

	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if strings.TrimSpace(opts.Secret) == "" {
			return nil, fmt.Errorf("%s requires a non-empty secret", alg)
		}
		tm.signKey = []byte(opts.Secret)
		tm.verifyKey = []byte(opts.Secret)
	case *jwt.SigningMethodRSA:
		if len(opts.PrivateKeyPEM) == 0 {
			return nil, fmt.Errorf("%s requires a private key", alg)
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(opts.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse rsa private key: %w", err)
		}
		tm.signKey = priv
		tm.verifyKey = &priv.PublicKey
		if len(opts.PublicKeyPEM) > 0 {
			pub, err := jwt.ParseRSAPublicKeyFromPEM(opts.PublicKeyPEM)
			if err != nil {
				return nil, fmt.Errorf("parse rsa public key: %w", err)
			}
			tm.verifyKey = pub
		}
	case *jwt.SigningMethodECDSA:
		if len(opts.PrivateKeyPEM) == 0 {
			return nil, fmt.Errorf("%s requires a private key", alg)
		}
		priv, err := jwt.ParseECPrivateKeyFromPEM(opts.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse ecdsa private key: %w", err)
		}
		tm.signKey = priv
		tm.verifyKey = &priv.PublicKey
		if len(opts.PublicKeyPEM) > 0 {
			pub, err := jwt.ParseECPublicKeyFromPEM(opts.PublicKeyPEM)
			if err != nil {
				return nil, fmt.Errorf("parse ecdsa public key: %w", err)
			}
			tm.verifyKey = pub
		}
	}
	return tm, nil
}

// Algorithm returns the configured signing algorithm name.
func (tm *TokenManager) Algorithm() string {
	return tm.method.Alg()
}

// GenerateToken signs a session token for subjectID in dept and returns it with its expiry.
func (tm *TokenManager) GenerateToken(subjectID int64, dept domain.Department) (string, time.Time, error) {
	if subjectID <= 0 {
		return "", time.Time{}, fmt.Errorf("subject id must be positive")
	}
	if !dept.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown department %q", dept)
	}
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := Claims{
		Subject:    subjectID,
		Department: dept,
		ExpiresAt:  jwt.NewNumericDate(expiresAt),
		IssuedAt:   jwt.NewNumericDate(now),
		Issuer:     tm.issuer,
		ID:         uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(tm.method, claims).SignedString(tm.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken checks signature, algorithm, expiry and claim shape.
// Every failure is reported as ErrInvalidToken.
func (tm *TokenManager) VerifyToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return tm.verifyKey, nil },
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject <= 0 || !claims.Department.Valid() {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	return claims, nil
}

// DisplayClaims is an unverified view of a token for display only.
type DisplayClaims struct {
	UserID     int64
	Department string
	ExpiresAt  time.Time
}

// PeekClaims decodes a token WITHOUT verifying its signature. The result must
// never be used for an authorization decision.
func PeekClaims(tokenString string) (*DisplayClaims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tokenString), mc); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	out := &DisplayClaims{}
	for _, key := range []string{"sub", "user_id"} {
		if v, ok := mc[key].(float64); ok {
			out.UserID = int64(v)
			break
		}
	}
	if d, ok := mc["department"].(string); ok {
		out.Department = d
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
