package gs1

import "strings"

// HonestMarkCode is the parsed view of a GS1 DataMatrix payload. Gtin and
// Serial are set iff the code is considered valid; absence of the other
// optional fields is never an error.
type HonestMarkCode struct {
	Raw             string
	Gtin            string
	Serial          string
	VerificationKey string
	Crypto          string
}

// IsValid reports whether the required fields were parsed.
func (c HonestMarkCode) IsValid() bool {
	return c.Gtin != "" && c.Serial != ""
}

// Parse parses a raw DataMatrix payload into a HonestMarkCode. It first
// normalizes rawCode (§4.6), then splits AIs 01/21/91|93/92 out of the
// normalized buffer. Parse never panics: on any structural mismatch, the
// fields already filled are kept and the rest are left zero-valued. Raw
// on the result is the normalized payload, not the untouched input.
func Parse(rawCode string) HonestMarkCode {
	code := Normalize(rawCode)
	result := HonestMarkCode{Raw: code}

	// AI 01 — GTIN, always 14 digits.
	idx := strings.Index(code, "01")
	if idx == -1 {
		return result
	}
	if idx+16 > len(code) {
		return result
	}
	gtin := code[idx+2 : idx+16]
	if len(gtin) != 14 || !isAllDigits(gtin) {
		return result
	}
	result.Gtin = gtin
	codeRest := code[idx+16:]

	// AI 21 — Serial, variable length, terminated by GS or the next AI.
	if strings.HasPrefix(codeRest, aiSerial) {
		serialData := codeRest[2:]

		gsPos := strings.Index(serialData, GS)

		var aiPositions []int
		for _, ai := range append(append([]string{}, aiKeys...), aiCrypto) {
			if pos := strings.Index(serialData, ai); pos != -1 && pos <= 20 {
				aiPositions = append(aiPositions, pos)
			}
		}

		// Some integrations substitute the literal letters "GS" for the
		// separator byte.
		var plainGSPositions []int
		for _, ai := range append(append([]string{}, aiKeys...), aiCrypto) {
			if pos := strings.Index(serialData, "GS"+ai); pos != -1 && pos <= 20 {
				plainGSPositions = append(plainGSPositions, pos)
			}
		}

		switch {
		case gsPos != -1:
			result.Serial = serialData[:gsPos]
			codeRest = serialData[gsPos+1:]
		case len(plainGSPositions) > 0:
			nextAIPos := minOf(plainGSPositions)
			result.Serial = serialData[:nextAIPos]
			codeRest = serialData[nextAIPos+2:]
		case len(aiPositions) > 0:
			nextAIPos := minOf(aiPositions)
			result.Serial = serialData[:nextAIPos]
			codeRest = serialData[nextAIPos:]
		default:
			result.Serial = truncate(serialData, 20)
			codeRest = afterTruncate(serialData, 20)
		}
	}

	// AI 91/93 — verification key, exactly 4 characters.
	keyAI := ""
	keyPos := -1
	for _, ai := range aiKeys {
		if pos := strings.Index(codeRest, ai); pos != -1 && (keyPos == -1 || pos < keyPos) {
			keyAI = ai
			keyPos = pos
		}
	}
	if keyAI != "" && keyPos != -1 {
		end := keyPos + 6
		if end > len(codeRest) {
			end = len(codeRest)
		}
		key := codeRest[min(keyPos+2, len(codeRest)):end]
		if len(key) == 4 {
			result.VerificationKey = key
		}
		codeRest = codeRest[min(keyPos+6, len(codeRest)):]
	}

	if strings.HasPrefix(codeRest, "GS") {
		codeRest = codeRest[2:]
	}
	if strings.HasPrefix(codeRest, GS) {
		codeRest = codeRest[1:]
	}

	// AI 92 — crypto tail, the remainder of the code.
	if idx := strings.Index(codeRest, aiCrypto); idx != -1 {
		result.Crypto = codeRest[idx+2:]
	}

	return result
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func afterTruncate(s string, n int) string {
	if len(s) <= n {
		return ""
	}
	return s[n:]
}
