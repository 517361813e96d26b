package marketplace

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mintbay-api/internal/logger"
)

// NewSale is emitted after every settled purchase. The listing field is a
// snapshot taken after the quantity decrement.
type NewSale struct {
	EventID       uuid.UUID      `json:"event_id"`
	AssetContract common.Address `json:"asset_contract"`
	Seller        common.Address `json:"seller"`
	ListingID     uint64         `json:"listing_id"`
	Buyer         common.Address `json:"buyer"`
	Quantity      uint64         `json:"quantity"`
	Listing       Listing        `json:"listing"`
}

// saleEventBuffer bounds how far a listener may lag before emits block.
const saleEventBuffer = 64

type saleListener struct {
	channel chan NewSale
}

// EventManager fans sale events out to registered listeners. Each listener
// gets its own buffered channel and goroutine; events are delivered to every
// listener in settlement order.
type EventManager struct {
	mu        sync.Mutex
	listeners []*saleListener
}

// NewEventManager creates an event manager with no listeners.
func NewEventManager() *EventManager {
	return &EventManager{}
}

// AddSaleListener registers a callback invoked for every NewSale event.
func (em *EventManager) AddSaleListener(callback func(sale NewSale)) {
	listener := &saleListener{channel: make(chan NewSale, saleEventBuffer)}

	em.mu.Lock()
	em.listeners = append(em.listeners, listener)
	em.mu.Unlock()

	go func() {
		for sale := range listener.channel {
			callback(sale)
		}
	}()
}

// EmitSale delivers the event to every listener. Sends go into each
// listener's buffered channel in emit order, so a listener never observes
// two sales swapped.
func (em *EventManager) EmitSale(sale NewSale) {
	em.mu.Lock()
	listeners := make([]*saleListener, len(em.listeners))
	copy(listeners, em.listeners)
	em.mu.Unlock()

	if len(listeners) == 0 {
		logger.Debug("no sale listeners registered", zap.Uint64("listing_id", sale.ListingID))
	}
	for _, listener := range listeners {
		listener.channel <- sale
	}
}
