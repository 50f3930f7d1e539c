package jwtx

// Signer turns claims into a compact JWT.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// NewSignerHS256 returns an HS256 signer for secret. Call Validate before use.
func NewSignerHS256(secret []byte) Signer {
	return &HS256{secret: secret}
}
