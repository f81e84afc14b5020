// Package gs1 normalizes and parses GS1 DataMatrix payloads carried by
// "Честный Знак" marking codes. It is a direct, idiomatic-Go port of the
// reference parser's normalize/parse pair, preserving its exact field
// offsets and fallback order.
package gs1

import (
	"regexp"
	"strings"
	"unicode"
)

// GS is the ASCII Group Separator byte GS1 uses to terminate
// variable-length fields.
const GS = "\x1d"

const (
	aiSerial = "21"
	aiCrypto = "92"
)

var aiKeys = []string{"91", "93"}

var leadingPrefixes = []string{"]d2", "<FNC1>"}

var aiAfterGS = []string{"91", "92", "93"}

var visibleGSRe = regexp.MustCompile(`(?i)(<GS>|\[GS\]|\{GS\}|␝|\\x1d|\\u001d|\^\])`)

// Normalize canonicalizes raw_code to a single representation with GS
// (0x1D) as the only field separator: it strips leading symbology/FNC1
// prefixes, rewrites visible or escaped GS encodings to the real byte, and
// repairs integrations that send the literal letters "GS" in place of the
// separator ahead of AIs 91/92/93.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(rawCode string) string {
	code := strings.TrimSpace(rawCode)

	// Rewrite visible GS tokens first, so a token at the very start becomes
	// a leading GS byte that the prefix loop below strips.
	code = visibleGSRe.ReplaceAllString(code, GS)

	changed := true
	for changed && code != "" {
		changed = false
		if trimmed := strings.TrimLeftFunc(code, unicode.IsSpace); trimmed != code {
			code = trimmed
			changed = true
		}
		for _, prefix := range leadingPrefixes {
			if strings.HasPrefix(code, prefix) {
				code = code[len(prefix):]
				changed = true
			}
		}
		// Some integrations deliver FNC1 as the raw byte 0xE8.
		if code != "" && code[0] == 0xE8 {
			code = code[1:]
			changed = true
		}
		if strings.HasPrefix(code, GS) {
			code = code[1:]
			changed = true
		}
	}

	// Heuristic for integrations that send the separator as the literal
	// letters "GS". Only replace markers immediately before AI 91/92/93,
	// and only past offset 18 (01 + GTIN(14) + 21 + at least 1 serial
	// char), so serials that legitimately contain "GS" are left alone.
	for _, ai := range aiAfterGS {
		marker := "GS" + ai
		start := 18
		for {
			idx := strings.Index(code[min(start, len(code)):], marker)
			if idx == -1 {
				break
			}
			idx += min(start, len(code))
			code = code[:idx] + GS + code[idx+2:]
			start = idx + 1
		}
	}

	return code
}

// isAllDigits reports whether s is non-empty and consists only of decimal
// digits — used in place of Python's str.isdigit for the GTIN check.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
