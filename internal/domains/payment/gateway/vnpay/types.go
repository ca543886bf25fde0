package vnpay

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is yyyyMMddHHmmss, always in GMT+7.
const DateLayout = "20060102150405"

var vietnamZone = time.FixedZone("GMT+7", 7*60*60)

// FormatDate renders t in VNPay's date format and timezone.
func FormatDate(t time.Time) string {
	return t.In(vietnamZone).Format(DateLayout)
}

// ParseDate parses a VNPay date (vnp_PayDate, vnp_CreateDate).
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, vietnamZone)
}

// FormatAmount formats amount for VNPay
// VNPay requires amount in VND (no decimal) * 100
// Example: 100,000 VND -> 10000000
func FormatAmount(amount decimal.Decimal) int64 {
	return amount.Round(0).Mul(decimal.NewFromInt(100)).IntPart()
}

// ParseAmount parses VNPay amount back to decimal
// Example: "10000000" -> 100,000 VND
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	amountInt, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	return decimal.NewFromInt(amountInt).Div(decimal.NewFromInt(100)), nil
}
