package models

import "strings"

// SanitizeKeySegment escapes the key delimiter so a user-controlled
// identifier cannot spill into an adjacent bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// SearchKey is the bucket of one user's search requests.
func SearchKey(userID string) string {
	return "search:user:" + SanitizeKeySegment(userID)
}

// LoginKey is the bucket of login attempts for one email from one address.
func LoginKey(email, ip string) string {
	return "login:" + SanitizeKeySegment(strings.ToLower(strings.TrimSpace(email))) + ":" + SanitizeKeySegment(ip)
}
