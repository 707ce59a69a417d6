package sim

import "fmt"

// OrderStatus tracks an order along its lifecycle lattice.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// legalTransitions encodes the monotone lattice
// pending -> processing -> {delivered, cancelled}. Delivered and cancelled
// are terminal. Shipped is a declared wire status not produced by the core.
var legalTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Order is a replenishment request owned by exactly one actor at a time.
// Cross-actor messages reference orders by id only; no shared mutable
// reference crosses an actor boundary.
type Order struct {
	ID        string
	ProductID string
	Quantity  int
	Requester string
	CreatedAt int64 // tick of creation
	Status    OrderStatus

	// DeliveryPoint is set by the distributor from the ORDER_REQUEST payload
	// and consumed when dispatching a carrier.
	DeliveryPoint string
}

// NewOrder validates and builds a pending order.
func NewOrder(id, productID string, quantity int, requester string, createdAt int64) (*Order, error) {
	if id == "" {
		return nil, fmt.Errorf("order: id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("order: product id cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("order: quantity must be positive, got %d", quantity)
	}
	if requester == "" {
		return nil, fmt.Errorf("order: requester cannot be empty")
	}
	return &Order{
		ID:        id,
		ProductID: productID,
		Quantity:  quantity,
		Requester: requester,
		CreatedAt: createdAt,
		Status:    StatusPending,
	}, nil
}

// Advance moves the order to a new status, enforcing the lattice. Once
// delivered or cancelled the status never changes again.
func (o *Order) Advance(next OrderStatus) error {
	for _, allowed := range legalTransitions[o.Status] {
		if next == allowed {
			o.Status = next
			return nil
		}
	}
	return fmt.Errorf("order %s: illegal transition %s -> %s", o.ID, o.Status, next)
}

// Terminal reports whether the order has reached a final status.
func (o *Order) Terminal() bool {
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}

func (o *Order) String() string {
	return fmt.Sprintf("Order %s: %dx %s for %s (%s)", o.ID, o.Quantity, o.ProductID, o.Requester, o.Status)
}
