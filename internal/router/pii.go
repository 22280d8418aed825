// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"context"
	"regexp"
)

// piiPatterns match common identifiers: email addresses, phone numbers,
// US social security numbers, payment card numbers, and IBANs.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`),
	regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
}

// PatternDetector is a PIIDetector backed by regular expressions. It is the
// default detector when no external PII service is configured.
type PatternDetector struct {
	patterns []*regexp.Regexp
}

// NewPatternDetector returns a detector using the built-in patterns plus any
// extra expressions.
func NewPatternDetector(extra ...*regexp.Regexp) *PatternDetector {
	patterns := append([]*regexp.Regexp(nil), piiPatterns...)
	return &PatternDetector{patterns: append(patterns, extra...)}
}

// Detect reports whether any pattern matches text.
func (d *PatternDetector) Detect(_ context.Context, text string) (bool, error) {
	for _, p := range d.patterns {
		if p.MatchString(text) {
			return true, nil
		}
	}
	return false, nil
}
