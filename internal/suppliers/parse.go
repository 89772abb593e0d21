package suppliers

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// parsePrice extracts a price in major units from retailer markup such
// as "£89.99", "was £120.00", or "89.99 inc VAT". Returns ok=false when
// no usable number is present.
func parsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	var b strings.Builder
	started := false
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			started = true
		case r == '.' && started:
			b.WriteRune(r)
		case r == ',' && started:
			// thousands separator
		case started:
			// number ended
			r = 0
		}
		if started && r == 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseOptionalPrice is parsePrice for "was" prices where absence is the
// common case. Returns zero when the markup holds no number.
func parseOptionalPrice(raw string) float64 {
	v, ok := parsePrice(raw)
	if !ok {
		return 0
	}
	return v
}

var dealDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02/01/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
}

// parseDealDate parses the date formats UK retailers put on deal badges.
// Date-only values are treated as end of that day in UTC so a deal
// labelled "ends 02/01/2026" stays active through the named day. The
// zero time means no expiry was advertised.
func parseDealDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, prefix := range []string{"Ends", "ends", "Expires", "expires", "Valid until", "valid until", "Until", "until"} {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, prefix))
	}
	raw = strings.TrimSuffix(raw, ".")
	if raw == "" {
		return time.Time{}
	}
	for i, layout := range dealDateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if i > 0 {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC()
	}
	return time.Time{}
}

// cleanText collapses runs of whitespace the way retailer templates tend
// to leave them.
func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
