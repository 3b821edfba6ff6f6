package receipt

import (
	"strings"

	"talous/internal/core"
)

// LayoutParser is the default variant. It understands OCR layout
// artifacts: an item name followed by its price on the next line, volume
// misreads glued onto names ("0,51" scanned from "0,5l"), and merchant
// lines polluted with phone numbers and postal addresses.
type LayoutParser struct{}

var _ Parser = LayoutParser{}

func (LayoutParser) Parse(rawText string) core.ParsedReceipt {
	lines := normalizeLines(rawText)
	return core.ParsedReceipt{
		Merchant: findMerchant(lines, 30),
		Date:     findDate(lines, 20),
		Total:    findTotal(lines),
		Items:    layoutItems(lines),
		RawText:  rawText,
	}
}

// layoutItems walks the lines pairing split name/price lines. When line i
// is followed by a standalone amount, i is the name and i+1 the price;
// otherwise a trailing amount on the line itself is used.
func layoutItems(lines []string) []core.ReceiptItem {
	var items []core.ReceiptItem
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if atTotalOrEnd(l) {
			break
		}
		if isSeparatorLine(l) || quantityLineRe.MatchString(l) {
			continue
		}

		if i+1 < len(lines) {
			if m := standaloneAmtRe.FindStringSubmatch(lines[i+1]); m != nil {
				name := cleanupSplitName(l)
				amount := core.ParseAmount(m[1])
				if name != "" && amount > 0 {
					items = append(items, core.ReceiptItem{Name: name, Amount: amount})
				}
				i++ // consume the price line too
				continue
			}
		}

		if m := trailingAmtRe.FindStringSubmatch(l); m != nil {
			name := strings.TrimSpace(m[1])
			if txnCodeRe.MatchString(name) || isJunkName(name) || len(name) < 3 {
				continue
			}
			items = append(items, core.ReceiptItem{Name: name, Amount: core.ParseAmount(m[2])})
		}
	}
	return items
}

// cleanupSplitName strips OCR noise from a name line whose price came
// from the following line. Returns "" when the line is not an item.
func cleanupSplitName(l string) string {
	name := strings.TrimSpace(l)
	if txnCodeRe.MatchString(name) {
		return ""
	}
	name = volumeArtifactRe.ReplaceAllString(name, "")
	name = trailingNumRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if isJunkName(name) || len(name) < 3 {
		return ""
	}
	return name
}
