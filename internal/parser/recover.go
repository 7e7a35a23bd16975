package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"facturas/internal/domain"
)

// Parse repairs the free-text response of the extraction service into an
// ExtractedInvoice. The service is generative and its output is not
// guaranteed to be well-formed JSON, so a chain of textual recovery steps is
// tried in order, short-circuiting on the first decode that passes the
// invoice shape check. Parse never panics and returns nil on irrecoverable
// input.
func Parse(raw string) *domain.ExtractedInvoice {
	text := stripNoise(raw)

	if inv := tryDecode(text); inv != nil {
		return inv
	}

	// The service sometimes returns the object with one extra layer of
	// backslash escaping, e.g. {\"invoiceCode\":...}.
	if strings.HasPrefix(strings.TrimSpace(text), `{\`) {
		if inv := tryDecode(unescapeOnce(text)); inv != nil {
			return inv
		}
	}

	normalized := stripTrailingCommas(normalizeDecimalCommas(text))
	if inv := tryDecode(normalized); inv != nil {
		return inv
	}

	// Whole payload JSON-string-encoded, possibly twice.
	if decoded, ok := unquoteJSONString(text); ok {
		if inv := tryDecode(decoded); inv != nil {
			return inv
		}
		if decoded2, ok2 := unquoteJSONString(decoded); ok2 {
			if inv := tryDecode(decoded2); inv != nil {
				return inv
			}
		}
	}

	// Last resort: parse just the outermost brace window, tolerating
	// leading/trailing prose.
	if window, ok := braceWindow(normalized); ok {
		if inv := tryDecode(window); inv != nil {
			return inv
		}
	}

	return nil
}

var (
	reCodeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	// A comma between two digit groups is a decimal separator written in the
	// Spanish convention (123,45).
	reDecimalComma  = regexp.MustCompile(`(\d),(\d)`)
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// stripNoise removes code-fence delimiters, the UTF-8 BOM, and zero-width
// characters.
func stripNoise(s string) string {
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	} else {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
	}
	for _, zw := range []string{"\uFEFF", "\u200B", "\u200C", "\u200D"} {
		s = strings.ReplaceAll(s, zw, "")
	}
	return strings.TrimSpace(s)
}

// unescapeOnce removes exactly one level of backslash escaping. Escaped
// backslashes are parked on a NUL placeholder first so the simple escapes
// they shield are not double-processed.
func unescapeOnce(s string) string {
	r := strings.NewReplacer(
		`\\`, "\x00",
		`\"`, `"`,
		`\/`, `/`,
		`\b`, "\b",
		`\f`, "\f",
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return strings.ReplaceAll(r.Replace(s), "\x00", `\`)
}

func normalizeDecimalCommas(s string) string {
	return reDecimalComma.ReplaceAllString(s, "$1.$2")
}

func stripTrailingCommas(s string) string {
	return reTrailingComma.ReplaceAllString(s, "$1")
}

// unquoteJSONString decodes a payload that is itself one JSON-encoded string.
func unquoteJSONString(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if len(t) < 2 || t[0] != '"' || t[len(t)-1] != '"' {
		return "", false
	}
	var out string
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return "", false
	}
	return out, true
}

func braceWindow(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// tryDecode parses the candidate text and applies the invoice shape check.
// A structurally valid JSON value of the wrong shape (an array, a bare
// number) is rejected rather than coerced.
func tryDecode(s string) *domain.ExtractedInvoice {
	var probe map[string]any
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil
	}
	if !validShape(probe) {
		return nil
	}
	var inv domain.ExtractedInvoice
	if err := json.Unmarshal([]byte(s), &inv); err != nil {
		return nil
	}
	return &inv
}

// validShape checks the minimum ExtractedInvoice contract: invoiceCode and
// issueDate are strings, provider.name is a string, totalAmount is a number
// and items is a sequence.
func validShape(m map[string]any) bool {
	if _, ok := m["invoiceCode"].(string); !ok {
		return false
	}
	provider, ok := m["provider"].(map[string]any)
	if !ok {
		return false
	}
	if _, ok := provider["name"].(string); !ok {
		return false
	}
	if _, ok := m["issueDate"].(string); !ok {
		return false
	}
	if _, ok := m["totalAmount"].(float64); !ok {
		return false
	}
	if _, ok := m["items"].([]any); !ok {
		return false
	}
	return true
}
