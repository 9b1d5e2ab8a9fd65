package services

import "strings"

// NormalizeMerchant canonicalizes raw merchant text for grouping: lower-case,
// trimmed, reduced to alphanumerics and single spaces. An empty result means
// the transaction has no usable merchant and can never join a candidate group.
func NormalizeMerchant(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
