// internal/tracker/phrases.go
package tracker

import "strings"

// StatusPhrases maps NUT status flags to readable text
type StatusPhrases map[string]string

// DefaultStatusPhrases covers the flags upsd documents for ups.status
var DefaultStatusPhrases = StatusPhrases{
	"OL":      "Online",
	"OB":      "On Battery",
	"LB":      "Low Battery",
	"HB":      "High Battery",
	"RB":      "Replace Battery",
	"CHRG":    "Charging",
	"DISCHRG": "Discharging",
	"BYPASS":  "Bypass",
	"CAL":     "Calibrating",
	"OFF":     "Offline",
	"OVER":    "Overloaded",
	"TRIM":    "Trimming Voltage",
	"BOOST":   "Boosting Voltage",
	"FSD":     "Forced Shutdown",
	"ALARM":   "Alarm",
}

// Describe renders each space-separated flag of status on its own and
// joins the results. Unknown flags are kept as they are.
func (p StatusPhrases) Describe(status string) string {
	tokens := strings.Fields(status)
	if len(tokens) == 0 {
		return status
	}

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if phrase, ok := p[tok]; ok {
			out = append(out, phrase)
		} else {
			out = append(out, tok)
		}
	}
	return strings.Join(out, ", ")
}
