package rate

import "time"

// Field names one of the two rates a collection cycle gathers.
type Field string

const (
	FieldUSD Field = "USD"
	FieldCNY Field = "CNY"
)

// Fields is the full set a cycle expects, in reporting order.
var Fields = []Field{FieldUSD, FieldCNY}

const DateLayout = "2006-01-02"

// Record holds one day's rates. All values are base-100 integer subunits so
// storage never accumulates binary floating-point drift. The markup fields
// are derived from the base fields at write time, never mutated on their own.
type Record struct {
	Date              time.Time
	UstBaseSubunits   int64
	CnyBaseSubunits   int64
	UstMarkupSubunits int64
	CnyMarkupSubunits int64
}

// Key is the storage key for the record's calendar date.
func (r Record) Key() string {
	return r.Date.Format(DateLayout)
}
