package whop

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reengageai/reengage"
)

// UserTokenHeader carries the user token injected by the platform proxy in front of the app.
const UserTokenHeader = "x-whop-user-token"

const TokenIssuer = "urn:whopcom:exp-proxy"

// TokenVerifier verifies ES256 user tokens issued by the platform proxy.
type TokenVerifier struct {
	key *ecdsa.PublicKey
	// Expected audience. Empty skips the audience check.
	appId string
}

var _ reengage.IdentityVerifier = (*TokenVerifier)(nil)

func NewTokenVerifier(publicKeyPem []byte, appId string) (*TokenVerifier, error) {
	key, err := jwt.ParseECPublicKeyFromPEM(publicKeyPem)
	if err != nil {
		return nil, fmt.Errorf("parse token public key: %w", err)
	}
	return &TokenVerifier{key: key, appId: appId}, nil
}

func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", reengage.ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	}
	if v.appId != "" {
		opts = append(opts, jwt.WithAudience(v.appId))
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", reengage.ErrUnauthorized, err)
	}

	userId, err := token.Claims.GetSubject()
	if err != nil || userId == "" {
		return "", fmt.Errorf("%w: missing subject", reengage.ErrUnauthorized)
	}
	return userId, nil
}
