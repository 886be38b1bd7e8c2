package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "ipregistry/pkg/domain-errors"
)

// Claims are the claims carried by portal access tokens. Subject is the
// wallet address the session was established for.
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 access tokens minted by the portal's login
// service and extracts the principal from them.
type JWTResolver struct {
	signingKey []byte
	issuer     string
}

func NewJWTResolver(signingKey string, issuer string) *JWTResolver {
	return &JWTResolver{signingKey: []byte(signingKey), issuer: issuer}
}

// Resolve validates the token and returns the principal it was issued to.
func (r *JWTResolver) Resolve(_ context.Context, credential string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return r.signingKey, nil
	}, jwt.WithIssuer(r.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	if claims.Subject == "" {
		return Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "token missing subject")
	}

	return Principal{ID: claims.Subject, Admin: claims.Admin}, nil
}

// Mint issues a signed access token for the given principal. Used by tests
// and the development seed; production tokens come from the login service.
func (r *JWTResolver) Mint(p Principal, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Admin: p.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	return token.SignedString(r.signingKey)
}
