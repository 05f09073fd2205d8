package auth

import "time"

// IdentityClaims are the claims carried by an identity token.
// The subject is the authenticated user id.
type IdentityClaims struct {
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// UserID returns the authenticated user id.
func (c *IdentityClaims) UserID() string {
	return c.Subject
}
