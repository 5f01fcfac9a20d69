package utils

import (
	"regexp"
	"strings"

	"github.com/ttacon/libphonenumber"
	"golang.org/x/text/cases"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	spaceRun     = regexp.MustCompile(`\s+`)
	folder       = cases.Fold()
)

// IsValidEmail applies the same loose shape check the quote form uses.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// FoldName produces the case and whitespace insensitive form of a vendor or
// item name used for fallback matching.
func FoldName(name string) string {
	return folder.String(spaceRun.ReplaceAllString(strings.TrimSpace(name), " "))
}

// NormalizePhone formats a phone number as E.164 when it parses for the
// region. Numbers that don't parse are returned trimmed, unchanged.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	p, err := libphonenumber.Parse(phone, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return phone
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}
