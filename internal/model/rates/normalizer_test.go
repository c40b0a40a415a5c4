package rates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"max.ks1230/rates-bot/internal/model/customerr"
)

var testDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func mustParse(t *testing.T, text string) decimal.Decimal {
	t.Helper()
	d, err := ParseRate(text)
	require.NoError(t, err)
	return d
}

func Test_Normalize_ReferenceRates(t *testing.T) {
	rec := Normalize(testDate, mustParse(t, "93.15"), mustParse(t, "12.85"))

	assert.Equal(t, int64(9215), rec.UstBaseSubunits)
	// 12.85 / 1.02 = 12.5980..., truncated to subunits
	assert.Equal(t, int64(1259), rec.CnyBaseSubunits)
	assert.Equal(t, int64(9315), rec.UstMarkupSubunits)
	// 12.5980 * 1.02 = 12.8499..., truncated again
	assert.Equal(t, int64(1284), rec.CnyMarkupSubunits)
	assert.Equal(t, testDate, rec.Date)
}

func Test_Normalize_IsDeterministic(t *testing.T) {
	usd := mustParse(t, "93.15")
	cny := mustParse(t, "12.85")

	first := Normalize(testDate, usd, cny)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(testDate, usd, cny))
	}
}

func Test_Normalize_MarkupRecomputedFromBase(t *testing.T) {
	// 92.15999 - 1.00 rounds to 91.1600, so the stored markup is 9216,
	// one subunit above the operator's original 92.15999.
	rec := Normalize(testDate, mustParse(t, "92.15999"), mustParse(t, "12.85"))

	assert.Equal(t, int64(9116), rec.UstBaseSubunits)
	assert.Equal(t, int64(9216), rec.UstMarkupSubunits)
}

func Test_Normalize_ExactDivision(t *testing.T) {
	// 12.9999 / 1.02 = 12.7450 exactly
	rec := Normalize(testDate, mustParse(t, "93.15"), mustParse(t, "12.9999"))

	assert.Equal(t, int64(1274), rec.CnyBaseSubunits)
	assert.Equal(t, int64(1299), rec.CnyMarkupSubunits)
}

func Test_ParseRate_AcceptsCommaSeparator(t *testing.T) {
	d, err := ParseRate(" 93,15 ")

	assert.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("93.15")))
}

func Test_ParseRate_RejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "abc", "12.3.4", "ninety"} {
		_, err := ParseRate(input)
		assert.ErrorIs(t, err, customerr.ErrInvalidNumber, input)
	}
}

func Test_ParseRate_RejectsNonPositive(t *testing.T) {
	for _, input := range []string{"0", "-93.15"} {
		_, err := ParseRate(input)
		assert.ErrorIs(t, err, customerr.ErrInvalidNumber, input)
	}
}
