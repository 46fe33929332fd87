package memory

import (
	"errors"
	"time"
)

var (
	ErrInvalidProject  = errors.New("project id is empty")
	ErrInvalidCustomer = errors.New("customer id is empty")
)

// Slot is one named long-term memory value with its own timestamp.
type Slot struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerMemory is the per-(project, customer) record of named slots.
type CustomerMemory struct {
	ProjectID  string          `json:"project_id"`
	CustomerID string          `json:"customer_id"`
	Slots      map[string]Slot `json:"slots,omitempty"`
}

func NewCustomerMemory(projectID, customerID string) *CustomerMemory {
	return &CustomerMemory{
		ProjectID:  projectID,
		CustomerID: customerID,
		Slots:      make(map[string]Slot, 4),
	}
}

// Data flattens the slots into a plain name/value map.
func (m *CustomerMemory) Data() map[string]string {
	if m == nil || len(m.Slots) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.Slots))
	for name, slot := range m.Slots {
		out[name] = slot.Value
	}
	return out
}

func (m *CustomerMemory) Clone() *CustomerMemory {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Slots = make(map[string]Slot, len(m.Slots))
	for name, slot := range m.Slots {
		cp.Slots[name] = slot
	}
	return &cp
}

/* ------------------------------ TTL categories ---------------------------- */

type Category string

const (
	CategoryIdentity    Category = "identity"
	CategoryTransaction Category = "transaction"
	CategoryPreference  Category = "preference"
)

// Well-known slot names written by the orchestrator.
const (
	SlotCustomerName   = "customer_name"
	SlotLastOrderID    = "last_order_id"
	SlotLastTrackingID = "last_tracking_id"
	SlotLastBookingID  = "last_booking_id"
)

// TTLPolicy maps slot categories to their time-to-live. A slot older than its
// category's TTL is treated as absent by readers; the backing row persists.
type TTLPolicy struct {
	Identity    time.Duration `envconfig:"IDENTITY_TTL" split_words:"true" default:"8760h"`
	Transaction time.Duration `envconfig:"TRANSACTION_TTL" split_words:"true" default:"720h"`
	Preference  time.Duration `envconfig:"PREFERENCE_TTL" split_words:"true" default:"2160h"`
}

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Identity:    365 * 24 * time.Hour,
		Transaction: 30 * 24 * time.Hour,
		Preference:  90 * 24 * time.Hour,
	}
}

func slotCategory(name string) Category {
	switch name {
	case SlotCustomerName:
		return CategoryIdentity
	case SlotLastOrderID, SlotLastTrackingID, SlotLastBookingID:
		return CategoryTransaction
	default:
		return CategoryPreference
	}
}

func (p TTLPolicy) ttlFor(name string) time.Duration {
	switch slotCategory(name) {
	case CategoryIdentity:
		return p.Identity
	case CategoryTransaction:
		return p.Transaction
	default:
		return p.Preference
	}
}

// expired reports whether the slot is past its TTL at the given instant.
// A zero or negative TTL disables expiry for that category.
func (p TTLPolicy) expired(name string, slot Slot, now time.Time) bool {
	ttl := p.ttlFor(name)
	if ttl <= 0 {
		return false
	}
	return now.Sub(slot.UpdatedAt) > ttl
}

// filterExpired returns a copy of mem with expired slots removed. The input
// record is not mutated; expiry is a read-time view.
func (p TTLPolicy) filterExpired(mem *CustomerMemory, now time.Time) *CustomerMemory {
	out := NewCustomerMemory(mem.ProjectID, mem.CustomerID)
	for name, slot := range mem.Slots {
		if p.expired(name, slot, now) {
			continue
		}
		out.Slots[name] = slot
	}
	return out
}
