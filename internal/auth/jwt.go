package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature is returned when a callback token is missing, forged,
// issued for another stage, or bound to a different target.
var ErrInvalidSignature = errors.New("auth: invalid callback signature")

// Signer issues and verifies the tokens threaded through callback URLs as
// the "sig" parameter. A Signer with no secret is disabled: Sign returns ""
// and Verify accepts everything.
type Signer struct {
	secret []byte
	issuer string
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer}
}

func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

/* ===================== ISSUE TOKENS ===================== */

func (s *Signer) Sign(stage Stage, smsTarget string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if stage == "" || smsTarget == "" {
		return "", errors.New("auth: stage and target are required")
	}

	claims := CallbackClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Audience: jwt.ClaimStrings{string(stage)},
		},
		SMSTarget: smsTarget,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

/* ===================== VERIFY TOKEN ===================== */

func (s *Signer) Verify(token string, stage Stage, smsTarget string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return fmt.Errorf("%w: missing", ErrInvalidSignature)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(stage)),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims CallbackClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.SMSTarget != smsTarget {
		return fmt.Errorf("%w: target mismatch", ErrInvalidSignature)
	}
	return nil
}
