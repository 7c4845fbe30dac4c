package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fenestra-platform/fenestra/internal/config"
)

// Principal is the class of caller a token represents. Token issuance lives
// with the OTP/login collaborator; this package only verifies.
type Principal string

const (
	PrincipalBuyer  Principal = "buyer"
	PrincipalSeller Principal = "seller"
	PrincipalAdmin  Principal = "admin"
)

// Claims carried by every fenestra access token.
type Claims struct {
	SubjectID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens for each principal class.
type Verifier struct {
	secrets map[Principal][]byte
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{
		secrets: map[Principal][]byte{
			PrincipalBuyer:  []byte(cfg.BuyerSecret),
			PrincipalSeller: []byte(cfg.SellerSecret),
			PrincipalAdmin:  []byte(cfg.AdminSecret),
		},
	}
}

// Validate parses and verifies a token signed for the given principal class.
func (v *Verifier) Validate(principal Principal, tokenStr string) (*Claims, error) {
	secret, ok := v.secrets[principal]
	if !ok {
		return nil, fmt.Errorf("unknown principal class %q", principal)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role != string(principal) {
		return nil, fmt.Errorf("token role %q does not match principal %q", claims.Role, principal)
	}

	return claims, nil
}

// Sign mints a token for the given principal. The production issuer is the
// external OTP service sharing the same secret; this is used by tests and
// local tooling.
func Sign(secret string, principal Principal, subjectID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID: subjectID,
		Role:      string(principal),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "fenestra",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
