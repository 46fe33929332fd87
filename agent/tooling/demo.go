package tooling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

// Demo adapters back the local wiring and tests with fixed data. The remote
// backends implement the same contract interfaces out of tree.

type DemoPurchasesAdapter struct {
	mu     sync.RWMutex
	orders map[string]contractx.Order
	ships  map[string]contractx.Shipment
}

func NewDemoPurchasesAdapter() *DemoPurchasesAdapter {
	return &DemoPurchasesAdapter{
		orders: map[string]contractx.Order{
			"ORDER-200": {ID: "ORDER-200", Status: "shipped", TrackingID: "TRK-9X81"},
			"ORDER-201": {ID: "ORDER-201", Status: "processing"},
		},
		ships: map[string]contractx.Shipment{
			"TRK-9X81": {TrackingID: "TRK-9X81", Carrier: "ACME Express", Status: "in transit", ETA: "2 days"},
		},
	}
}

func (a *DemoPurchasesAdapter) GetOrder(ctx context.Context, orderID string) (*contractx.Order, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	order, ok := a.orders[strings.ToUpper(orderID)]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (a *DemoPurchasesAdapter) GetShipment(ctx context.Context, trackingID string) (*contractx.Shipment, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ship, ok := a.ships[strings.ToUpper(trackingID)]
	if !ok {
		return nil, nil
	}
	return &ship, nil
}

type DemoBookingsAdapter struct {
	mu       sync.Mutex
	nextID   int
	bookings map[string]contractx.Booking
}

func NewDemoBookingsAdapter() *DemoBookingsAdapter {
	return &DemoBookingsAdapter{
		nextID:   1,
		bookings: make(map[string]contractx.Booking),
	}
}

func (a *DemoBookingsAdapter) CheckAvailability(ctx context.Context, date, timeSlot string, partySize int) (bool, error) {
	// Demo policy: parties up to eight fit.
	return partySize <= 8, nil
}

func (a *DemoBookingsAdapter) CreateBooking(ctx context.Context, req contractx.BookingRequest) (*contractx.Booking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	booking := contractx.Booking{
		ID:        fmt.Sprintf("BKG-%d", a.nextID),
		Date:      req.Date,
		Time:      req.Time,
		PartySize: req.PartySize,
		Status:    "confirmed",
	}
	a.nextID++
	a.bookings[booking.ID] = booking
	return &booking, nil
}

func (a *DemoBookingsAdapter) CancelBooking(ctx context.Context, bookingID string) (*contractx.Booking, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	booking, ok := a.bookings[strings.ToUpper(bookingID)]
	if !ok {
		return nil, nil
	}
	booking.Status = "cancelled"
	a.bookings[booking.ID] = booking
	return &booking, nil
}

type DemoClaimsAdapter struct {
	mu     sync.Mutex
	nextID int
	claims map[string]contractx.Claim
}

func NewDemoClaimsAdapter() *DemoClaimsAdapter {
	return &DemoClaimsAdapter{
		nextID: 1,
		claims: make(map[string]contractx.Claim),
	}
}

func (a *DemoClaimsAdapter) CreateClaim(ctx context.Context, customerID, description string) (*contractx.Claim, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	claim := contractx.Claim{
		ID:          fmt.Sprintf("CLM-%d", a.nextID),
		Status:      "open",
		Description: description,
		OpenedAt:    time.Now().UTC(),
	}
	a.nextID++
	a.claims[claim.ID] = claim
	return &claim, nil
}

func (a *DemoClaimsAdapter) GetClaim(ctx context.Context, claimID string) (*contractx.Claim, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	claim, ok := a.claims[strings.ToUpper(claimID)]
	if !ok {
		return nil, nil
	}
	return &claim, nil
}
