package receipt

import (
	"strings"

	"talous/internal/core"
)

// SimpleParser is the fallback variant for clean plain-text receipts
// (PDF text layers). It takes the first line as the merchant and only
// reads items whose name and price share a line.
type SimpleParser struct{}

var _ Parser = SimpleParser{}

func (SimpleParser) Parse(rawText string) core.ParsedReceipt {
	lines := normalizeLines(rawText)
	merchant := ""
	if len(lines) > 0 {
		merchant = cleanupMerchant(lines[0])
	}
	return core.ParsedReceipt{
		Merchant: merchant,
		Date:     findDate(lines, 15),
		Total:    findTotal(lines),
		Items:    simpleItems(lines),
		RawText:  rawText,
	}
}

func simpleItems(lines []string) []core.ReceiptItem {
	if len(lines) < 2 {
		return nil
	}
	var items []core.ReceiptItem
	for _, l := range lines[1:] {
		if atTotalOrEnd(l) {
			break
		}
		if isSeparatorLine(l) || quantityLineRe.MatchString(l) {
			continue
		}
		m := trailingAmtRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if txnCodeRe.MatchString(name) || isJunkName(name) || len(name) < 3 {
			continue
		}
		items = append(items, core.ReceiptItem{Name: name, Amount: core.ParseAmount(m[2])})
	}
	return items
}
