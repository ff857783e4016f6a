package resume

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bnpl-checkout/shared"
)

const (
	DefaultTTL = time.Hour
	issuer     = "bnpl-checkout"
)

var (
	ErrNoSecret     = errors.New("resume signing secret is not configured")
	ErrInvalidToken = errors.New("invalid resume token")
)

// Claims bind a redirect return to the workflow and verification request
// that launched it.
type Claims struct {
	WorkflowID string        `json:"wid"`
	RequestID  string        `json:"rid"`
	Source     shared.Source `json:"src"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 resume tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs claims that expire after ttl.
func (s *Signer) Issue(workflowID, requestID string, source shared.Source, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	claims := Claims{
		WorkflowID: workflowID,
		RequestID:  requestID,
		Source:     source,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of a token.
func (s *Signer) Verify(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.WorkflowID == "" || claims.RequestID == "" {
		return nil, fmt.Errorf("%w: missing workflow or request id", ErrInvalidToken)
	}
	return claims, nil
}

// ReturnURL builds the redirect-back URL handed to the verification partner.
func ReturnURL(base, sessionID, token string) string {
	q := url.Values{}
	q.Set(shared.ReturnQueryParam, "true")
	q.Set(shared.SessionParam, sessionID)
	if token != "" {
		q.Set(shared.ResumeTokenParam, token)
	}
	return strings.TrimRight(base, "/") + shared.ReturnPath + "?" + q.Encode()
}
