// Package receipt converts raw OCR or PDF text into a structured receipt
// (merchant, date, total, line items) with pure line-scanning heuristics.
// Two parser variants exist behind one interface: LayoutParser handles
// OCR artifacts where an item name and its price land on separate lines,
// SimpleParser only reads single-line items from clean text exports.
package receipt

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"talous/internal/core"
)

// Parser converts raw receipt text into a best-effort structured form.
// A missing date or total is a valid result, not an error.
type Parser interface {
	Parse(rawText string) core.ParsedReceipt
}

var (
	fiDateRe         = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	isoDateRe        = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	amountRe         = regexp.MustCompile(`(-?\d+[.,]\d{2})`)
	standaloneAmtRe  = regexp.MustCompile(`^(\d+[.,]\d{2})$`)
	trailingAmtRe    = regexp.MustCompile(`^(.*?)\s*(-?\d+[.,]\d{2})$`)
	txnCodeRe        = regexp.MustCompile(`[A-Z]\d{3,}|M\d{6}`)
	phoneRe          = regexp.MustCompile(`(?i)\s*(?:Puh|Tel)\.?\s*\(?\d+\)?[\s\d-]+`)
	postalRe         = regexp.MustCompile(`,?\s*\d{5}\s+[\p{L}\s]+$`)
	volumeArtifactRe = regexp.MustCompile(`(?i)\s+\d+[.,]\d+L\S*`)
	trailingNumRe    = regexp.MustCompile(`\s+\d+[.,]\d{1,2}$`)
	quantityLineRe   = regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*(?:kg|g|l|kpl|pcs)$`)
)

// totalMarkers are the localized "total" keywords scanned for, uppercase.
var totalMarkers = []string{"YHTEENSÄ", "TOTAL", "SUMMA"}

// junkPrefixes mark tax, payment-method and loyalty lines that are never
// purchasable items.
var junkPrefixes = []string{"ALV", "KORTTI", "PLUSSA", "BONUS", "PANTTI"}

// chainKeywords identify known grocery chains on the merchant scan.
var chainKeywords = []string{"market", "prisma", "lidl", "alepa"}

// normalizeLines NFC-normalizes the text (OCR output mixes composed and
// decomposed forms of å/ä/ö) and splits it into trimmed non-empty lines.
func normalizeLines(raw string) []string {
	normalized, _, err := transform.String(norm.NFC, raw)
	if err != nil {
		normalized = raw
	}
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var lines []string
	for _, l := range strings.Split(normalized, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func cleanupMerchant(line string) string {
	m := phoneRe.ReplaceAllString(line, "")
	m = postalRe.ReplaceAllString(m, "")
	return strings.TrimSpace(m)
}

// findMerchant scans the first scanDepth lines for a known chain keyword,
// then for a long all-uppercase line, then falls back to the first line.
func findMerchant(lines []string, scanDepth int) string {
	limit := scanDepth
	if limit > len(lines) {
		limit = len(lines)
	}
	for _, l := range lines[:limit] {
		lower := strings.ToLower(l)
		for _, kw := range chainKeywords {
			if strings.Contains(lower, kw) {
				return cleanupMerchant(l)
			}
		}
		if l == strings.ToUpper(l) && l != strings.ToLower(l) && len(l) > 5 {
			return cleanupMerchant(l)
		}
	}
	if len(lines) > 0 {
		return cleanupMerchant(lines[0])
	}
	return ""
}

// findDate returns the first D.M.YYYY or YYYY-MM-DD match in the early
// lines as an ISO date string, or "".
func findDate(lines []string, scanDepth int) string {
	limit := scanDepth
	if limit > len(lines) {
		limit = len(lines)
	}
	for _, l := range lines[:limit] {
		if m := fiDateRe.FindString(l); m != "" {
			if t, ok := core.ParseDate(m); ok {
				return core.FormatDate(t)
			}
		}
		if m := isoDateRe.FindString(l); m != "" {
			if t, ok := core.ParseDate(m); ok {
				return core.FormatDate(t)
			}
		}
	}
	return ""
}

// findTotal scans for a total marker and reads the amount from the same
// line or, when OCR split them, from one of the next four lines.
func findTotal(lines []string) float64 {
	for i, l := range lines {
		upper := strings.ToUpper(l)
		marked := false
		for _, marker := range totalMarkers {
			if strings.Contains(upper, marker) {
				marked = true
				break
			}
		}
		if !marked {
			continue
		}
		if m := amountRe.FindString(l); m != "" {
			return core.ParseAmount(m)
		}
		for j := i + 1; j < len(lines) && j <= i+4; j++ {
			if m := standaloneAmtRe.FindStringSubmatch(lines[j]); m != nil {
				return core.ParseAmount(m[1])
			}
		}
	}
	return math.NaN()
}

func isJunkName(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range junkPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

func isSeparatorLine(l string) bool {
	for _, r := range l {
		if r != '-' && r != '=' {
			return false
		}
	}
	return len(l) > 0
}

func atTotalOrEnd(l string) bool {
	upper := strings.ToUpper(l)
	for _, marker := range totalMarkers {
		if strings.HasPrefix(upper, marker) {
			return true
		}
	}
	return strings.Contains(upper, "CARD TRANSACTION")
}
