package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventRoleChanged          = "role.changed"
	EventSessionAutoCompleted = "session.autocompleted"
	EventPaymentMarkedPaid    = "payment.marked_paid"
)

func NewRoleChangedEvent(userID, actorID int64, oldRole, newRole string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventRoleChanged,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"user_id":  userID,
			"actor_id": actorID,
			"old_role": oldRole,
			"new_role": newRole,
		},
	}
}

func NewSessionAutoCompletedEvent(sessionID, userID int64, totalTime int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventSessionAutoCompleted,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"user_id":    userID,
			"total_time": totalTime,
		},
	}
}

func NewPaymentMarkedPaidEvent(paymentID, userID, actorID, amount int64) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      EventPaymentMarkedPaid,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"payment_id": paymentID,
			"user_id":    userID,
			"actor_id":   actorID,
			"amount":     amount,
		},
	}
}
