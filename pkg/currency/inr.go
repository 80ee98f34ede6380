package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatINR renders an amount with the rupee sign and Indian digit grouping:
// the last three integer digits form one group, every pair before it another
// (12999 -> ₹12,999 and 1234567.50 -> ₹12,34,567.50). Fractional paise are
// printed only when present, always with two places.
func FormatINR(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	abs := amount.Abs()

	var whole, fraction string
	if abs.IsInteger() {
		whole = abs.StringFixed(0)
	} else {
		fixed := abs.StringFixed(2)
		dot := strings.IndexByte(fixed, '.')
		whole, fraction = fixed[:dot], fixed[dot+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(whole))
	if fraction != "" {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	groups = append(groups, tail)

	return strings.Join(groups, ",")
}
