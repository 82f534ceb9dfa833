package taint

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// VariantFunc derives one alternate encoding of a sensitive value. A variant
// equal to the input, or empty, is discarded. The set is open: registries can
// be constructed with additional transforms without touching call sites.
type VariantFunc func(string) string

// DefaultVariants returns the built-in transform list: base64, hex,
// percent-encoding, reversed, lowercase and separator-stripped forms.
func DefaultVariants() []VariantFunc {
	return []VariantFunc{
		VariantBase64,
		VariantHex,
		VariantPercent,
		VariantReversed,
		VariantLowercase,
		VariantStripSeparators,
	}
}

func VariantBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func VariantHex(s string) string {
	return hex.EncodeToString([]byte(s))
}

// VariantPercent percent-encodes every byte outside the RFC 3986 unreserved
// set.
func VariantPercent(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

func VariantReversed(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func VariantLowercase(s string) string {
	return strings.ToLower(s)
}

// VariantStripSeparators drops spaces, dashes, dots and underscores, so a
// secret leaked without its formatting is still recognized.
func VariantStripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '_':
			return -1
		}
		return r
	}, s)
}

func generateVariants(value string, fns []VariantFunc) []string {
	variants := []string{value}
	seen := map[string]bool{value: true}
	for _, fn := range fns {
		v := fn(value)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants
}
