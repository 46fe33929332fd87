package state

import (
	"errors"
	"time"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

var (
	ErrStateNotFound = errors.New("conversation state not found")
	ErrNilState      = errors.New("conversation state is nil")
	ErrInvalidConvID = errors.New("conversation id is empty")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	DefaultMaxMessages        = 40
	DefaultMaxProcessedEvents = 100
)

// Limits bounds the per-conversation history. Oldest entries drop first.
type Limits struct {
	MaxMessages        int `envconfig:"MAX_MESSAGES" split_words:"true" default:"40"`
	MaxProcessedEvents int `envconfig:"MAX_PROCESSED_EVENTS" split_words:"true" default:"100"`
}

func (l Limits) withDefaults() Limits {
	if l.MaxMessages <= 0 {
		l.MaxMessages = DefaultMaxMessages
	}
	if l.MaxProcessedEvents <= 0 {
		l.MaxProcessedEvents = DefaultMaxProcessedEvents
	}
	return l
}

type Message struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// ConversationState is the persistent per-conversation record: turn history,
// routing context, idempotency keys, and identifiers carried between turns.
// ConversationID never changes once created.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages,omitempty"`

	RoutedDomain contractx.Domain `json:"routed_domain,omitempty"`

	// Insertion-ordered, bounded set of handled event ids.
	ProcessedEventIDs []string `json:"processed_event_ids,omitempty"`

	CustomerID     string `json:"customer_id,omitempty"`
	CustomerName   string `json:"customer_name,omitempty"`
	LastOrderID    string `json:"last_order_id,omitempty"`
	LastTrackingID string `json:"last_tracking_id,omitempty"`
	LastBookingID  string `json:"last_booking_id,omitempty"`

	// Booking request fields gathered across turns.
	BookingDate      string `json:"booking_date,omitempty"`
	BookingTime      string `json:"booking_time,omitempty"`
	BookingPartySize int    `json:"booking_party_size,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(conversationID string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		UpdatedAt:      now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendMessage appends one message, dropping the oldest entries so the
// history never exceeds limits.MaxMessages.
func (s *ConversationState) AppendMessage(role, text string, now time.Time, limits Limits) {
	limits = limits.withDefaults()
	s.Messages = append(s.Messages, Message{Role: role, Text: text, At: now.UTC()})
	if overflow := len(s.Messages) - limits.MaxMessages; overflow > 0 {
		s.Messages = append([]Message(nil), s.Messages[overflow:]...)
	}
}

// HasProcessedEvent reports whether eventID was already handled.
func (s *ConversationState) HasProcessedEvent(eventID string) bool {
	if eventID == "" {
		return false
	}
	for _, id := range s.ProcessedEventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// RecordEvent marks eventID as handled, dropping the oldest ids so the set
// never exceeds limits.MaxProcessedEvents.
func (s *ConversationState) RecordEvent(eventID string, limits Limits) {
	if eventID == "" || s.HasProcessedEvent(eventID) {
		return
	}
	limits = limits.withDefaults()
	s.ProcessedEventIDs = append(s.ProcessedEventIDs, eventID)
	if overflow := len(s.ProcessedEventIDs) - limits.MaxProcessedEvents; overflow > 0 {
		s.ProcessedEventIDs = append([]string(nil), s.ProcessedEventIDs[overflow:]...)
	}
}

// LastAssistantText returns the text of the most recent assistant message,
// or "" when the assistant has not spoken yet.
func (s *ConversationState) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Text
		}
	}
	return ""
}

// Clone returns a deep copy, so stores can hand out states that callers may
// mutate freely.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	cp.ProcessedEventIDs = append([]string(nil), s.ProcessedEventIDs...)
	return &cp
}

func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilState
	}
	if s.ConversationID == "" {
		return ErrInvalidConvID
	}
	return nil
}
