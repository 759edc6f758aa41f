package service

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonDigitRegex   = regexp.MustCompile(`\D+`)
)

// Identity kinds used in lock keys and import cache lookups.
const (
	identityEmail = "email"
	identityPhone = "phone"
	identityName  = "name"
)

// normalizeEmail lowercases and trims the provided email.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// normalizePhone strips formatting and yields "+<digits>". A leading 00
// international prefix is folded into the plus.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = nonDigitRegex.ReplaceAllString(phone, "")
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "00") {
		phone = phone[2:]
	}
	return "+" + phone
}

// normalizeName collapses whitespace and lowercases a display name for lookups.
func normalizeName(name string) string {
	return strings.ToLower(sanitizeString(name))
}

// hashValue returns a deterministic SHA-256 hash for the provided value.
func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// identityLockKey scopes a normalized identity to its team. The value is
// hashed so lock keys held in Redis carry no contact details.
func identityLockKey(teamID, kind, value string) string {
	if value == "" {
		return ""
	}
	return teamID + ":" + kind + ":" + hashValue(value)
}
