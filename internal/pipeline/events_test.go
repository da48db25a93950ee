package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/internal/pipeline"
)

func TestBus_PublishStampsEvents(t *testing.T) {
	bus := pipeline.NewBus(4, otelzap.New(zap.NewNop()), nil)

	bus.Publish(pipeline.Event{Type: pipeline.EventShipmentOK, OrderNo: "ORDER-1"})

	ev := <-bus.Events()
	assert.Equal(t, pipeline.EventShipmentOK, ev.Type)
	assert.Equal(t, "ORDER-1", ev.OrderNo)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Time.IsZero())
}

func TestBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := pipeline.NewBus(2, otelzap.New(zap.NewNop()), nil)

	for i := 0; i < 5; i++ {
		bus.Publish(pipeline.Event{Type: pipeline.EventFileDone})
	}

	var received int
	for {
		select {
		case <-bus.Events():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 2, received)
}

func TestBus_NilBusDiscards(t *testing.T) {
	var bus *pipeline.Bus

	require.NotPanics(t, func() {
		bus.Publish(pipeline.Event{Type: pipeline.EventFileDone})
	})
}

func TestBus_Close(t *testing.T) {
	bus := pipeline.NewBus(1, otelzap.New(zap.NewNop()), nil)
	bus.Close()

	_, open := <-bus.Events()
	assert.False(t, open)
}
