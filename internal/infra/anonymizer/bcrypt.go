package anonymizer

import (
	"crypto/sha256"

	"stock_checker/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured
const DefaultCost = 12

var _ domain.Anonymizer = (*Bcrypt)(nil)

// Bcrypt produces salted one-way address credentials
type Bcrypt struct {
	cost int
}

// NewBcrypt creates an anonymizer with the given cost.
// Out-of-range costs fall back to DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Anonymize hashes rawAddr with a fresh salt; equal inputs give different outputs
func (b *Bcrypt) Anonymize(rawAddr string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(rawAddr), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether credential was produced from rawAddr.
// Malformed credentials (including the empty sentinel) never match.
func (b *Bcrypt) Verify(rawAddr, credential string) bool {
	if credential == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(credential), prehash(rawAddr)) == nil
}

// prehash keeps long IPv6 zone strings under bcrypt's 72-byte input limit
func prehash(rawAddr string) []byte {
	sum := sha256.Sum256([]byte(rawAddr))
	return sum[:]
}
