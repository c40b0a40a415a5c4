package kafka

// RateEvent announces that the record for a date was inserted or replaced.
// JSON on the wire; the date uses the storage key layout YYYY-MM-DD.
type RateEvent struct {
	Date string `json:"date"`
}
