package sim

import "fmt"

// Message kinds exchanged between actors. The kind is an open string tag:
// actors ignore (and log) kinds they do not understand.
const (
	KindOrderRequest         = "ORDER_REQUEST"
	KindFactoryOrder         = "FACTORY_ORDER"
	KindProductionComplete   = "PRODUCTION_COMPLETE"
	KindDispatchOrder        = "DISPATCH_ORDER"
	KindPickupComplete       = "PICKUP_COMPLETE"
	KindDeliveryComplete     = "DELIVERY_COMPLETE"
	KindDeliveryNotification = "DELIVERY_NOTIFICATION"
	KindOrderRejected        = "ORDER_REJECTED"
	KindTruckAvailable       = "TRUCK_AVAILABLE"
	KindDemandUpdate         = "DEMAND_UPDATE"
	KindRegisterStore        = "REGISTER_STORE"
	KindUnregisterStore      = "UNREGISTER_STORE"
)

// Payload carries the key/value fields of an envelope.
type Payload map[string]any

// String returns the string value for key, with ok=false when the key is
// absent or holds a non-string.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Int returns the integer value for key. Numeric YAML/JSON round-trips may
// surface ints as float64, so both representations are accepted.
func (p Payload) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Float returns the float value for key.
func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Envelope is a single message between two actors. Envelopes are immutable
// once published: ownership passes to the bus on Publish and to the
// recipient's drained batch on Drain.
type Envelope struct {
	Sender    string
	Recipient string
	Kind      string
	Data      Payload
	SentAt    int64 // tick at which the envelope was published
}

// NewEnvelope validates and builds an envelope. Sender, recipient and kind
// must be non-empty; data must be non-nil.
func NewEnvelope(sender, recipient, kind string, data Payload, sentAt int64) (*Envelope, error) {
	if sender == "" {
		return nil, fmt.Errorf("envelope: sender cannot be empty")
	}
	if recipient == "" {
		return nil, fmt.Errorf("envelope: recipient cannot be empty")
	}
	if kind == "" {
		return nil, fmt.Errorf("envelope: kind cannot be empty")
	}
	if data == nil {
		return nil, fmt.Errorf("envelope: data cannot be nil")
	}
	return &Envelope{Sender: sender, Recipient: recipient, Kind: kind, Data: data, SentAt: sentAt}, nil
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%s -> %s: %s", e.Sender, e.Recipient, e.Kind)
}
