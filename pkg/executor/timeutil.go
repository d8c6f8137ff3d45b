package executor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/calcom"
)

const dateLayout = "2006-01-02"

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}

func parseInstant(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected ISO 8601 such as 2026-01-15T14:00:00Z", field, value)
	}
	return t, nil
}

// dayBounds returns 00:00:00Z and 23:59:59Z of day
func dayBounds(day time.Time) (string, string) {
	date := day.Format(dateLayout)
	return date + "T00:00:00Z", date + "T23:59:59Z"
}

func midnight(day time.Time) string {
	return day.Format(dateLayout) + "T00:00:00Z"
}

// withinDay keeps the provider's slots that fall inside day's UTC bounds,
// preserving order and the provider's representation
func withinDay(slots calcom.Slots, day time.Time) calcom.Slots {
	first := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	last := first.Add(24*time.Hour - time.Second)

	out := make(calcom.Slots, 0, len(slots))
	for _, slot := range slots {
		t, err := time.Parse(time.RFC3339, slot.Time)
		if err != nil {
			log.Warn().Str("slot", slot.Time).Msg("Dropping slot with unparseable time")
			continue
		}
		t = t.UTC()
		if t.Before(first) || t.After(last) {
			log.Warn().Str("slot", slot.Time).Str("date", day.Format(dateLayout)).Msg("Dropping slot outside requested day")
			continue
		}
		out = append(out, slot)
	}
	return out
}
