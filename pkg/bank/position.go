package bank

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction of a leveraged position.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// ParseDirection accepts "long" / "short" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return "", Errorf(CodeInvalidDirection, "unknown direction %q", s)
}

// Valid reports whether d is Long or Short.
func (d Direction) Valid() bool { return d == Long || d == Short }

// LeverageScale is the fixed-point scale of leverage values: 100 = 1.00x.
var LeverageScale = decimal.NewFromInt(100)

// Position is an open leveraged holding. A position is identified within an
// account by (Symbol, OpenedAt) and is removed from the open-set when closed.
type Position struct {
	OpenedAt   int64           `json:"opened_at"` // unix seconds
	Symbol     string          `json:"symbol"`    // canonical ticker
	Hand       decimal.Decimal `json:"hand"`
	Leverage   decimal.Decimal `json:"leverage"` // scaled by LeverageScale
	EntryPrice decimal.Decimal `json:"entry_price"`
	Direction  Direction       `json:"direction"`
}

// Multiplier converts a scaled leverage into its real multiplier (150 → 1.5).
func Multiplier(leverage decimal.Decimal) decimal.Decimal {
	return leverage.Div(LeverageScale)
}

// ValidateOrder rejects malformed open requests before anything is fetched
// or mutated.
func ValidateOrder(hand, leverage decimal.Decimal, dir Direction) error {
	if !hand.IsPositive() {
		return Errorf(CodeInvalidHand, "hand must be positive: %s", hand)
	}
	if !leverage.IsPositive() {
		return Errorf(CodeInvalidLeverage, "leverage must be positive: %s", leverage)
	}
	if !dir.Valid() {
		return Errorf(CodeInvalidDirection, "unknown direction %q", string(dir))
	}
	return nil
}

// Cost is the margin charged to open a position:
//
//	cost = price × hand / (leverage / 100)
func Cost(price, hand, leverage decimal.Decimal) (decimal.Decimal, error) {
	if !leverage.IsPositive() {
		return decimal.Zero, Errorf(CodeInvalidLeverage, "leverage must be positive: %s", leverage)
	}
	return price.Mul(hand).Div(Multiplier(leverage)), nil
}

// Settlement is the outcome of closing a position at a given price.
type Settlement struct {
	SellPrice decimal.Decimal `json:"sell_price"`
	Earning   decimal.Decimal `json:"earning"`
	Principal decimal.Decimal `json:"principal"`
	Payout    decimal.Decimal `json:"payout"`    // credited amount, never negative
	Shortfall decimal.Decimal `json:"shortfall"` // loss beyond principal that was not charged
}

// Settle computes earning and payout for closing p at sellPrice:
//
//	Long:  earning = (sell - entry) × hand × leverage/100
//	Short: earning = (entry - sell) × hand × leverage/100
//	principal = entry × hand / (leverage/100)
//	payout = principal + earning, floored at zero
func (p *Position) Settle(sellPrice decimal.Decimal) (Settlement, error) {
	if !p.Leverage.IsPositive() {
		return Settlement{}, Errorf(CodeInvalidLeverage, "position %s@%d has leverage %s", p.Symbol, p.OpenedAt, p.Leverage)
	}
	mult := Multiplier(p.Leverage)

	var diff decimal.Decimal
	switch p.Direction {
	case Long:
		diff = sellPrice.Sub(p.EntryPrice)
	case Short:
		diff = p.EntryPrice.Sub(sellPrice)
	default:
		return Settlement{}, Errorf(CodeInvalidDirection, "position %s@%d has direction %q", p.Symbol, p.OpenedAt, string(p.Direction))
	}

	earning := diff.Mul(p.Hand).Mul(mult)
	principal := p.EntryPrice.Mul(p.Hand).Div(mult)
	payout := principal.Add(earning)
	shortfall := decimal.Zero
	if payout.IsNegative() {
		shortfall = payout.Neg()
		payout = decimal.Zero
	}

	return Settlement{
		SellPrice: sellPrice,
		Earning:   earning,
		Principal: principal,
		Payout:    payout,
		Shortfall: shortfall,
	}, nil
}

// FindPosition returns the index of the open position matching symbol
// (case-insensitive) and openedAt, or -1.
func FindPosition(open []*Position, symbol string, openedAt int64) int {
	for i, p := range open {
		if p.OpenedAt == openedAt && strings.EqualFold(p.Symbol, symbol) {
			return i
		}
	}
	return -1
}

// RemovePosition returns open without the element at i.
func RemovePosition(open []*Position, i int) []*Position {
	out := make([]*Position, 0, len(open)-1)
	out = append(out, open[:i]...)
	return append(out, open[i+1:]...)
}

// OpenStamp returns the first second at or after now that no open position
// on symbol already uses, keeping (symbol, openedAt) unique.
func OpenStamp(open []*Position, symbol string, now int64) int64 {
	for FindPosition(open, symbol, now) >= 0 {
		now++
	}
	return now
}
