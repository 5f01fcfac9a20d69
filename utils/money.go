package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal accepts user formatted amounts such as "3.25", "$1,200.50",
// "USD 12", " 100 " or JSON numbers. Empty input parses as zero; free text
// such as "10 per 2 units" is a validation error.
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return parseDecimalString(val)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported number %v", ErrValidation, v)
	}
}

var (
	currencyCode = regexp.MustCompile(`^[A-Z]{3}\s*|\s*[A-Z]{3}$`)
	decimalShape = regexp.MustCompile(`^-?\d*\.?\d+$`)
	amountNoise  = strings.NewReplacer(",", "", " ", "", "\t", "", "$", "", "€", "", "£", "", "¥", "", "₹", "")
)

// parseDecimalString strips currency marks, thousands separators and spaces;
// whatever remains must be a plain decimal.
func parseDecimalString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	clean := amountNoise.Replace(currencyCode.ReplaceAllString(s, ""))
	if strings.HasPrefix(clean, "-.") {
		clean = "-0" + clean[1:]
	}
	if !decimalShape.MatchString(clean) {
		return decimal.Zero, fmt.Errorf("%w: invalid number %q", ErrValidation, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid number %q", ErrValidation, s)
	}
	return d, nil
}
