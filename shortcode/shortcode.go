// Package shortcode produces collision-resistant short codes. Generation
// does not guarantee uniqueness; the store's unique constraint does, and
// creation retries generation on conflict.
package shortcode

import (
	"crypto/rand"
	"math/big"
)

// charset is URL-safe and uniform; 62^8 candidate codes at the default length.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the generated code length when none is configured.
const DefaultLength = 8

// Generator produces random short codes of a fixed length.
type Generator struct {
	length int
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Generate returns a cryptographically random code drawn uniformly from
// the charset.
func (g *Generator) Generate() (string, error) {
	result := make([]byte, g.length)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}
