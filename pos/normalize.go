package pos

import "strings"

// NormalizeBSSID canonicalizes an access-point identifier: trims whitespace,
// lowercases, and replaces dash separators with colons. Trailing colons are
// preserved here; slot matching strips them (see canonicalKey) so that
// "aa:bb:cc:dd:ee:ff" and "aa:bb:cc:dd:ee:ff:" address the same feature.
func NormalizeBSSID(bssid string) string {
	s := strings.ToLower(strings.TrimSpace(bssid))
	return strings.ReplaceAll(s, "-", ":")
}

// canonicalKey is the trailing-delimiter-insensitive form used for feature
// slot lookup.
func canonicalKey(bssid string) string {
	return strings.TrimSuffix(NormalizeBSSID(bssid), ":")
}
