package marketplace_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"mintbay-api/internal/marketplace"
)

func TestSaleEventsDeliveredInEmitOrder(t *testing.T) {
	em := marketplace.NewEventManager()

	received := make(chan marketplace.NewSale, 16)
	em.AddSaleListener(func(sale marketplace.NewSale) {
		received <- sale
	})

	for i := uint64(1); i <= 5; i++ {
		em.EmitSale(marketplace.NewSale{
			EventID:   uuid.New(),
			ListingID: 1,
			Quantity:  i,
		})
	}

	for want := uint64(1); want <= 5; want++ {
		select {
		case sale := <-received:
			assert.Equal(t, want, sale.Quantity)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never arrived", want)
		}
	}
}

func TestSaleEventsFanOutToEveryListener(t *testing.T) {
	em := marketplace.NewEventManager()

	first := make(chan marketplace.NewSale, 1)
	second := make(chan marketplace.NewSale, 1)
	em.AddSaleListener(func(sale marketplace.NewSale) { first <- sale })
	em.AddSaleListener(func(sale marketplace.NewSale) { second <- sale })

	em.EmitSale(marketplace.NewSale{EventID: uuid.New(), ListingID: 7, Quantity: 2})

	for _, ch := range []chan marketplace.NewSale{first, second} {
		select {
		case sale := <-ch:
			assert.Equal(t, uint64(7), sale.ListingID)
		case <-time.After(2 * time.Second):
			t.Fatal("listener never received the sale")
		}
	}
}
