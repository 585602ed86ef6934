package model

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money guarda importes en centavos. En JSON viaja como número decimal (53.99).
type Money int64

// MaxMoney es el tope de cualquier importe: 999999999.99.
const MaxMoney Money = 99_999_999_999

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(int64(MaxMoney))
)

// ParseMoney convierte "53.99" a 5399. Rechaza negativos, más de dos decimales y montos sobre MaxMoney.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred)
	if !cents.IsInteger() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return Money(cents.IntPart()), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Times multiplica el precio unitario por la cantidad.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
