package tooling

import (
	"fmt"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

const degradedServiceReply = "I could not reach our records just now. Please try again in a moment."

// Render turns a tool outcome into the draft reply text for the user.
// Error outcomes render as a generic degraded-service reply.
func Render(domain contractx.Domain, out contractx.ToolOutcome) string {
	if out.ErrorCode != "" {
		return degradedServiceReply
	}

	switch out.Tool {
	case "get_order":
		if !out.Found {
			return fmt.Sprintf("I could not find an order %s. Could you double-check the id?", dataString(out, "order_id"))
		}
		reply := fmt.Sprintf("Order %s is %s.", dataString(out, "order_id"), dataString(out, "status"))
		if tracking := dataString(out, "tracking_id"); tracking != "" {
			reply += fmt.Sprintf(" Its tracking code is %s.", tracking)
		}
		return reply
	case "get_tracking":
		if !out.Found {
			return fmt.Sprintf("I could not find shipment %s.", dataString(out, "tracking_id"))
		}
		reply := fmt.Sprintf("Shipment %s via %s is %s.",
			dataString(out, "tracking_id"), dataString(out, "carrier"), dataString(out, "status"))
		if eta := dataString(out, "eta"); eta != "" {
			reply += fmt.Sprintf(" Estimated delivery: %s.", eta)
		}
		return reply
	case "check_availability":
		when := fmt.Sprintf("%s at %s for %v people", dataString(out, "date"), dataString(out, "time"), out.Data["party_size"])
		if available, _ := out.Data["available"].(bool); available {
			return fmt.Sprintf("Good news, we have availability on %s. Shall I book it?", when)
		}
		return fmt.Sprintf("Sorry, we are fully booked on %s. Would another time work?", when)
	case "create_booking":
		if !out.Found {
			return "I could not create that booking. Would another time work?"
		}
		return fmt.Sprintf("Your booking %s is confirmed for %s at %s, party of %v.",
			dataString(out, "booking_id"), dataString(out, "date"), dataString(out, "time"), out.Data["party_size"])
	case "cancel_booking":
		if !out.Found {
			return "I could not find that booking to cancel."
		}
		return fmt.Sprintf("Booking %s has been cancelled.", dataString(out, "booking_id"))
	case "create_claim":
		if !out.Found {
			return degradedServiceReply
		}
		return fmt.Sprintf("Your claim %s has been opened. We will follow up shortly.", dataString(out, "claim_id"))
	case "get_claim_status":
		if !out.Found {
			return fmt.Sprintf("I could not find claim %s.", dataString(out, "claim_id"))
		}
		return fmt.Sprintf("Claim %s is currently %s.", dataString(out, "claim_id"), dataString(out, "status"))
	default:
		return degradedServiceReply
	}
}

func dataString(out contractx.ToolOutcome, key string) string {
	v, ok := out.Data[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}
