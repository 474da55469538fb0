package auth // package auth provides password hashing, the token codec and the session lifecycle

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types embedded in the signed payload. The type is part of the
// claims, not inferred from the endpoint, so a token minted for one purpose
// can never be replayed against an endpoint expecting another.
const (
	TokenAccess            = "access"
	TokenRefresh           = "refresh"
	TokenEmailConfirmation = "email_confirmation"
	TokenPasswordReset     = "password_reset"
)

// Claims is the decoded view of a signed token.
type Claims struct {
	Subject   string    // bound identity, always an email address
	TokenType string    // one of the Token* constants
	IssuedAt  time.Time // UTC
	ExpiresAt time.Time // UTC
}

// Codec signs and verifies compact HS256 tokens carrying a subject, a type
// tag, issued-at and expiry.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec { return &Codec{secret: []byte(secret)} }

// Encode signs a token of the given type for subject, valid for ttl.
func (c *Codec) Encode(subject string, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":        subject,
		"token_type": tokenType,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies signature and expiry together and enforces the expected
// token type; any failure collapses into ErrInvalidToken. An expired but
// correctly signed token fails closed the same as a forged one.
func (c *Codec) Decode(raw, expectedType string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	typ, _ := mc["token_type"].(string)
	if typ != expectedType {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{Subject: sub, TokenType: typ}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time.UTC()
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	return out, nil
}
