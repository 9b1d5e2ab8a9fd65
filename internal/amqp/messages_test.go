package amqp

import "testing"

func TestSubscriptionChangedMessageRoundTrip(t *testing.T) {
	msg := NewSubscriptionChangedMessage("owner-1", "sub-1", ActionPaused)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := SubscriptionChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.OwnerID != "owner-1" || parsed.SubscriptionID != "sub-1" || parsed.Action != ActionPaused {
		t.Fatalf("roundtrip mismatch: %+v", parsed)
	}
	if parsed.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}
}

func TestSubscriptionChangedMessageFromJSONInvalid(t *testing.T) {
	if _, err := SubscriptionChangedMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
