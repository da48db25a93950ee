package bring_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier/bring"
	"github.com/felixwingard/garp-shipping-connector/pkg/garp"
)

func TestClient_Name(t *testing.T) {
	client := bring.New(otelzap.New(zap.NewNop()))
	assert.Equal(t, "BRING", client.Name())
}

func TestClient_CreateShipment_NotImplemented(t *testing.T) {
	client := bring.New(otelzap.New(zap.NewNop()))

	_, err := client.CreateShipment(context.Background(), &garp.Shipment{OrderNo: "108001-1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, carrier.ErrNotImplemented)
	var carrierErr *carrier.CarrierError
	require.ErrorAs(t, err, &carrierErr)
	assert.Equal(t, "NOT_IMPLEMENTED", carrierErr.Code)
	assert.Equal(t, "BRING", carrierErr.Carrier)
}

func TestClient_GetLabel_NotImplemented(t *testing.T) {
	client := bring.New(otelzap.New(zap.NewNop()))

	_, err := client.GetLabel(context.Background(), "BR123", "pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, carrier.ErrNotImplemented)
}
