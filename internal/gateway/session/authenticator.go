package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

// tokenClaims is the internal claims type used for JWT signing and parsing.
// The field names are part of the token wire format.
type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	OrgName  string `json:"orgName"`
	Company  string `json:"company"`
}

// Authenticator mints and verifies session tokens against a shared secret
// known only to the gateway process.
type Authenticator struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewAuthenticator creates an authenticator. lifetime bounds the validity of
// every token it issues.
func NewAuthenticator(secret string, lifetime time.Duration, now func() time.Time) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("session lifetime must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      now,
	}, nil
}

// Issue mints a signed token embedding the subject, organization and company
// tenant, expiring one lifetime from now.
func (a *Authenticator) Issue(subject, org, company string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(org) == "" {
		return "", fmt.Errorf("org is required")
	}
	now := a.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
		Username: subject,
		OrgName:  org,
		Company:  company,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a raw bearer token and decodes the session embedded
// at issuance. Every failure mode maps to a generic authentication error so
// the boundary never leaks which check failed.
func (a *Authenticator) Authenticate(raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, apperrors.New(apperrors.CodeTokenMissing, "failed to authenticate")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Session{}, mapJWTError(err)
	}

	if strings.TrimSpace(parsed.Username) == "" || strings.TrimSpace(parsed.OrgName) == "" || strings.TrimSpace(parsed.Company) == "" {
		return Session{}, apperrors.New(apperrors.CodeTokenInvalid, "failed to authenticate")
	}

	sess := Session{
		Subject: parsed.Username,
		Org:     parsed.OrgName,
		Company: parsed.Company,
	}
	if parsed.IssuedAt != nil {
		sess.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		sess.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return sess, nil
}

// mapJWTError translates jwt library errors to domain errors. The message is
// the same in every branch; only the code differs, for logging.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Wrap(apperrors.CodeTokenExpired, "failed to authenticate", err)
	}
	return apperrors.Wrap(apperrors.CodeTokenInvalid, "failed to authenticate", err)
}
