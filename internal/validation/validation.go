package validation

import (
	"regexp"
	"strings"
)

// Violations maps field names to error codes.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s().-]{6,20}$`)
)

// Required flags the field when value is blank.
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Date checks a YYYY-MM-DD value.
func Date(field, value string, v Violations) {
	if !dateRe.MatchString(value) {
		v[field] = "invalid_date"
	}
}

// Time checks an HH:MM value (00-23 hours, 00-59 minutes).
func Time(field, value string, v Violations) {
	if !timeRe.MatchString(value) {
		v[field] = "invalid_time"
	}
}

// Email checks an address loosely.
func Email(field, value string, v Violations) {
	if !emailRe.MatchString(value) {
		v[field] = "invalid_email"
	}
}

// Phone checks an international phone number loosely.
func Phone(field, value string, v Violations) {
	if !phoneRe.MatchString(value) {
		v[field] = "invalid_phone"
	}
}

// IsDate reports whether value is a YYYY-MM-DD string.
func IsDate(value string) bool { return dateRe.MatchString(value) }

// IsTime reports whether value is an HH:MM string.
func IsTime(value string) bool { return timeRe.MatchString(value) }
