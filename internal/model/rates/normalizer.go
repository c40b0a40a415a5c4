package rates

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"max.ks1230/rates-bot/internal/entity/rate"
	"max.ks1230/rates-bot/internal/model/customerr"
)

// The operator enters display rates that already include the business margin:
// +1.00 RUB on USD, x1.02 on CNY. Storage keeps the margin-free base rates,
// so normalization strips the margin, and the stored markup fields are then
// recomputed from the rounded bases. The two stored markups may differ from
// the operator's numbers by a subunit; that loss is expected and keeps base
// and markup internally consistent.

const basePlaces = 4

// division precision before the 4-place rounding
const divPlaces = 8

var (
	usdMargin = decimal.RequireFromString("1.00")
	cnyFactor = decimal.RequireFromString("1.02")
)

// ParseRate parses one operator-entered rate. Both comma and dot decimal
// separators are accepted.
func ParseRate(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(customerr.ErrInvalidNumber, text)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, errors.Wrap(customerr.ErrInvalidNumber, "rate must be positive")
	}
	return d, nil
}

// Normalize converts the markup-inclusive operator rates into the stored
// record for date. Deterministic, no side effects.
func Normalize(date time.Time, usdMarkup, cnyMarkup decimal.Decimal) rate.Record {
	usdBase := usdMarkup.Sub(usdMargin).RoundBank(basePlaces)
	cnyBase := cnyMarkup.DivRound(cnyFactor, divPlaces).RoundBank(basePlaces)

	return rate.Record{
		Date:              date,
		UstBaseSubunits:   toSubunits(usdBase),
		CnyBaseSubunits:   toSubunits(cnyBase),
		UstMarkupSubunits: toSubunits(usdBase.Add(usdMargin)),
		CnyMarkupSubunits: toSubunits(cnyBase.Mul(cnyFactor)),
	}
}

// toSubunits truncates toward zero, matching the historical storage rule
// (12.5980 becomes 1259, not 1260).
func toSubunits(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}
