package types

import "strings"

// NormalizePhone strips separators and rewrites an international +213 or
// 00213 prefix to the national leading 0. The result must be exactly ten
// digits; ok is false otherwise.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	phone := b.String()
	switch {
	case strings.HasPrefix(phone, "+213"):
		phone = "0" + strings.TrimPrefix(phone, "+213")
	case strings.HasPrefix(phone, "00213"):
		phone = "0" + strings.TrimPrefix(phone, "00213")
	case strings.HasPrefix(phone, "+"):
		return "", false
	}
	if len(phone) != 10 {
		return "", false
	}
	return phone, true
}
