package calculator

// Phrase returns the activity line verb for the statement.
func (s Statement) Phrase() string {
	switch s.Direction {
	case DirectionPaid:
		return "You paid"
	case DirectionReceived:
		return "You received"
	case DirectionOwes:
		return "You owe"
	default:
		return ""
	}
}

// Text renders the statement as "<phrase> <currency> <amount>" with two
// decimal places. Locale-aware formatting belongs to the presentation layer.
func (s Statement) Text() string {
	return s.Phrase() + " " + s.Currency + " " + s.Amount.StringFixed(2)
}
