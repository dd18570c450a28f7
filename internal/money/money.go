package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// MaxScale matches the NUMERIC(36,18) columns backing balances and rates.
const MaxScale = 18

var DefaultFeeRate = decimal.New(1, -3)

func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if -amount.Exponent() > MaxScale {
		return decimal.Zero, ErrTooManyDecimals
	}
	return amount, nil
}

// Format renders a value without trailing zeros.
func Format(value decimal.Decimal) string {
	return value.String()
}

type TradeAmounts struct {
	Fee      decimal.Decimal
	Net      decimal.Decimal
	ToAmount decimal.Decimal
}

// ComputeTrade splits amount into the retained fee and the converted remainder:
// fee = amount * feeRate, net = amount - fee, toAmount = net * rate.
// Results are truncated to MaxScale so they fit the storage columns.
func ComputeTrade(amount, rate, feeRate decimal.Decimal) TradeAmounts {
	fee := amount.Mul(feeRate).Truncate(MaxScale)
	net := amount.Sub(fee)
	return TradeAmounts{
		Fee:      fee,
		Net:      net,
		ToAmount: net.Mul(rate).Truncate(MaxScale),
	}
}
