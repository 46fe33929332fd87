package planner

import (
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

// Identifier extraction is a pure preprocessing step, decoupled from any LLM
// call: the matches feed the planner context so the model never has to invent
// identifiers, and they drive the deterministic fallbacks.
var (
	orderIDPattern    = regexp.MustCompile(`(?i)\b(?:ORD|ORDER)-[A-Z0-9]{1,12}\b`)
	trackingIDPattern = regexp.MustCompile(`(?i)\b(?:TRK|TRACK)-[A-Z0-9]{1,12}\b`)
	claimIDPattern    = regexp.MustCompile(`(?i)\bCLM-[A-Z0-9]{1,12}\b`)
	bookingIDPattern  = regexp.MustCompile(`(?i)\bBKG-[A-Z0-9]{1,12}\b`)
)

// ExtractIDs finds explicit domain identifiers in user text. Matches are
// normalized to upper case; the first match of each kind wins.
func ExtractIDs(text string) contractx.ExtractedIDs {
	return contractx.ExtractedIDs{
		OrderID:    firstMatch(orderIDPattern, text),
		TrackingID: firstMatch(trackingIDPattern, text),
		ClaimID:    firstMatch(claimIDPattern, text),
		BookingID:  firstMatch(bookingIDPattern, text),
	}
}

func firstMatch(re *regexp.Regexp, text string) string {
	return strings.ToUpper(re.FindString(text))
}

/* ---------------------------- booking details ----------------------------- */

var (
	bookingDatePattern = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|hoy|mañana|monday|tuesday|wednesday|thursday|friday|saturday|sunday|\d{4}-\d{2}-\d{2})\b`)
	bookingTimePattern = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s?(?:am|pm)?|\d{1,2}\s?(?:am|pm))\b`)
	bookingSizePattern = regexp.MustCompile(`(?i)\b(?:for|party of|para)\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|dos|tres|cuatro|cinco|seis)\b`)
)

var partyWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"dos": 2, "tres": 3, "cuatro": 4, "cinco": 5, "seis": 6,
}

// BookingDetails holds booking request fields found in user text.
type BookingDetails struct {
	Date      string
	Time      string
	PartySize int
}

// ExtractBookingDetails finds a date, a time, and a party size in user text,
// so a bookings turn can accumulate request fields without a model call.
// Missing pieces stay zero-valued.
func ExtractBookingDetails(text string) BookingDetails {
	var det BookingDetails
	if m := bookingDatePattern.FindString(text); m != "" {
		det.Date = strings.ToLower(m)
	}
	if m := bookingTimePattern.FindStringSubmatch(text); m != nil {
		det.Time = strings.ReplaceAll(strings.ToLower(m[1]), " ", "")
	}
	if m := bookingSizePattern.FindStringSubmatch(text); m != nil {
		det.PartySize = partyCount(strings.ToLower(m[1]))
	}
	return det
}

func partyCount(token string) int {
	if n, ok := partyWords[token]; ok {
		return n
	}
	var n int
	if _, err := fmt.Sscanf(token, "%d", &n); err != nil {
		return 0
	}
	return n
}
