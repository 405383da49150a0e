package policy

import "time"

// PromiseType classifies a delivery commitment window.
type PromiseType string

const (
	// PromiseFriday commits to delivery by the end of the current week.
	PromiseFriday PromiseType = "FRIDAY"
	// PromiseEarlyNextWeek commits to delivery by the start of the next week.
	PromiseEarlyNextWeek PromiseType = "EARLY_NEXT_WEEK"
)

var dayAbbrevs = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ContactDay returns the short weekday name ("Mon".."Sun") for a timestamp.
// Stored as the contact_day fact on a session's first customer message.
func ContactDay(t time.Time) string {
	return dayAbbrevs[int(t.Weekday())]
}

// DeliveryPromise computes the commitment made to a customer reporting a
// delayed shipment. Contact Monday through Wednesday promises delivery by the
// upcoming Friday; Thursday through Sunday promises early next week (Monday).
// An unknown contact day falls back to the conservative next-week window.
// The returned deadline is an ISO date (YYYY-MM-DD) relative to now.
func DeliveryPromise(contactDay string, now time.Time) (PromiseType, string) {
	switch contactDay {
	case "Mon", "Tue", "Wed":
		daysUntil := (int(time.Friday) - int(now.Weekday()) + 7) % 7
		return PromiseFriday, now.AddDate(0, 0, daysUntil).Format("2006-01-02")
	default:
		daysUntil := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if daysUntil == 0 {
			daysUntil = 7
		}
		return PromiseEarlyNextWeek, now.AddDate(0, 0, daysUntil).Format("2006-01-02")
	}
}

// PromiseExpired reports whether an ISO deadline date lies strictly before
// now's date. The deadline day itself still counts as within the promise.
func PromiseExpired(deadline string, now time.Time) bool {
	if deadline == "" {
		return false
	}
	d, err := time.Parse("2006-01-02", deadline)
	if err != nil {
		return false
	}
	y, m, day := now.UTC().Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return today.After(d)
}
