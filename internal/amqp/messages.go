package amqp

import (
	"encoding/json"
	"time"
)

// Subscription change actions carried on the invalidation exchange.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionPaused  = "paused"
	ActionResumed = "resumed"
)

// SubscriptionChangedMessage signals that a subscription mutation happened
// and any derived aggregate (dashboards, detection caches) for the owner
// must recompute. It carries ids only; consumers fetch what they need.
type SubscriptionChangedMessage struct {
	OwnerID        string    `json:"owner_id"`
	SubscriptionID string    `json:"subscription_id"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewSubscriptionChangedMessage creates an invalidation message for a mutation.
func NewSubscriptionChangedMessage(ownerID, subscriptionID, action string) *SubscriptionChangedMessage {
	return &SubscriptionChangedMessage{
		OwnerID:        ownerID,
		SubscriptionID: subscriptionID,
		Action:         action,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SubscriptionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SubscriptionChangedMessageFromJSON creates a message from JSON bytes
func SubscriptionChangedMessageFromJSON(data []byte) (*SubscriptionChangedMessage, error) {
	var msg SubscriptionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
