// Implements the OrderQueue, which holds factory orders waiting for a free
// production slot. Orders are enqueued on arrival and started FIFO.

package sim

import (
	"fmt"
	"strings"
)

// OrderQueue is a FIFO queue of orders waiting for production capacity.
type OrderQueue struct {
	queue []*Order
}

// Enqueue adds an order to the back of the queue.
func (oq *OrderQueue) Enqueue(o *Order) {
	oq.queue = append(oq.queue, o)
}

// Len returns the number of queued orders.
func (oq *OrderQueue) Len() int {
	return len(oq.queue)
}

// Peek returns the order at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (oq *OrderQueue) Peek() *Order {
	if len(oq.queue) == 0 {
		return nil
	}
	return oq.queue[0]
}

// Dequeue removes and returns the order at the front of the queue.
// Returns nil if the queue is empty.
func (oq *OrderQueue) Dequeue() *Order {
	if len(oq.queue) == 0 {
		return nil
	}
	head := oq.queue[0]
	oq.queue = oq.queue[1:]
	return head
}

// Items returns the queue contents for iteration. The returned slice is the
// queue's internal storage -- callers may iterate over it but MUST NOT
// append to or reslice it.
func (oq *OrderQueue) Items() []*Order {
	return oq.queue
}

func (oq *OrderQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, o := range oq.queue {
		sb.WriteString(fmt.Sprint(o))
		if i < len(oq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
