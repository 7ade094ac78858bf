package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid covers bad signature, expiry and kind mismatch alike.
// Callers only ever see this one signal so the failure cause cannot be
// probed from outside.
var ErrTokenInvalid = errors.New("token is invalid")

// Kind distinguishes access tokens from refresh tokens. It is carried as
// an explicit claim and checked on validation: a valid signature alone
// does not prove the token is being used for its intended purpose.
type Kind string

const (
	KindAccess  Kind = "ACCESS"
	KindRefresh Kind = "REFRESH"
)

const issuer = "shopcore"

// ClockSkewLeeway tolerates small clock drift between distributed token
// issuers and validators.
const ClockSkewLeeway = 30 * time.Second

// Claims is the fixed claim set baked into every token. A typed struct
// instead of a free-form map keeps unknown claims out entirely.
type Claims struct {
	UserID uint     `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Kind   Kind     `json:"kind"`
	jwt.RegisteredClaims
}

// IssueAccess signs a new access token carrying identity and role claims.
func IssueAccess(userID uint, email string, roles []string, secret string, ttl time.Duration) (string, error) {
	return issue(Claims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		Kind:   KindAccess,
	}, secret, ttl)
}

// IssueRefresh signs a new refresh token. Roles are deliberately not
// embedded: they are re-resolved when the token is redeemed, so a
// long-lived token never carries stale authorization.
func IssueRefresh(userID uint, secret string, ttl time.Duration) (string, error) {
	return issue(Claims{
		UserID: userID,
		Kind:   KindRefresh,
	}, secret, ttl)
}

func issue(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// Validate verifies the signature, expiry and kind claim of a token and
// returns its claims. Any failure is reported as ErrTokenInvalid.
func Validate(tokenString string, expectedKind Kind, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenInvalid
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(ClockSkewLeeway),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Kind != expectedKind {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
