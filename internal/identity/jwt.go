package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "serenyx/pkg/domain-errors"
)

// Claims are the token claims issued by the identity provider.
type Claims struct {
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens from the managed auth provider.
type JWTVerifier struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTVerifier(signingKey, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Verify resolves the credential or fails with CodeUnauthorized. Expired
// tokens intentionally produce the same error kind as invalid ones.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (Subject, error) {
	if credential == "" {
		return Subject{}, dErrors.New(dErrors.CodeUnauthorized, "no credential provided")
	}

	parsed, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))
	if err != nil || !parsed.Valid {
		return Subject{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return Subject{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	roles := make(map[string]struct{}, len(claims.Roles))
	for _, r := range claims.Roles {
		roles[r] = struct{}{}
	}

	return Subject{
		ID:            claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Roles:         roles,
	}, nil
}

// IssueToken mints a signed token for the given subject. Used by tests and
// local development; production tokens come from the identity provider.
func (v *JWTVerifier) IssueToken(sub Subject, expiresIn time.Duration) (string, error) {
	roles := make([]string, 0, len(sub.Roles))
	for r := range sub.Roles {
		roles = append(roles, r)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:         sub.Email,
		EmailVerified: sub.EmailVerified,
		Roles:         roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			Audience:  []string{v.audience},
			ID:        uuid.NewString(),
		},
	})

	return token.SignedString(v.signingKey)
}
