package carrier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixwingard/garp-shipping-connector/pkg/carrier"
	"github.com/felixwingard/garp-shipping-connector/pkg/carrier/mock"
)

func TestRegistry_Register(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("DHL"))

	got, err := registry.Get("DHL")
	require.NoError(t, err)
	assert.Equal(t, "DHL", got.Name())
}

func TestRegistry_Get_CaseInsensitive(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("DHL"))

	got, err := registry.Get("dhl")
	require.NoError(t, err)
	assert.Equal(t, "DHL", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("DHL"))
	assert.Equal(t, 1, registry.Count())

	// Same name should override, not duplicate.
	registry.Register(mock.New("DHL"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := carrier.NewRegistry()

	_, err := registry.Get("BRING")
	require.Error(t, err)
	assert.True(t, errors.Is(err, carrier.ErrCarrierNotFound))
	assert.Contains(t, err.Error(), "BRING")
}

func TestRegistry_All(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("DHL"))
	registry.Register(mock.New("PN"))
	registry.Register(mock.New("BRING"))

	assert.Len(t, registry.All(), 3)
}

func TestRegistry_Names_Sorted(t *testing.T) {
	registry := carrier.NewRegistry()

	registry.Register(mock.New("PN"))
	registry.Register(mock.New("DHL"))
	registry.Register(mock.New("BRING"))

	assert.Equal(t, []string{"BRING", "DHL", "PN"}, registry.Names())
}

func TestRegistry_Count(t *testing.T) {
	registry := carrier.NewRegistry()
	assert.Equal(t, 0, registry.Count())

	registry.Register(mock.New("DHL"))
	assert.Equal(t, 1, registry.Count())

	registry.Register(mock.New("PN"))
	assert.Equal(t, 2, registry.Count())
}

func TestRegistry_FindAllServicePoints(t *testing.T) {
	registry := carrier.NewRegistry()
	registry.Register(mock.New("DHL"))
	registry.Register(mock.New("PN"))

	results, errs := registry.FindAllServicePoints(context.Background(), "11122", "SE", 5)
	assert.Empty(t, errs)
	require.Len(t, results, 2)

	// Results are sorted by carrier name.
	assert.Equal(t, "DHL", results[0].Carrier)
	assert.Equal(t, "PN", results[1].Carrier)
	assert.NotEmpty(t, results[0].Points)
	assert.Equal(t, "11122", results[0].Points[0].PostalCode)
}

func TestRegistry_FindAllServicePoints_PartialFailure(t *testing.T) {
	registry := carrier.NewRegistry()

	failing := mock.New("DHL")
	failing.OnFindServicePoints = func(ctx context.Context, postalCode, countryCode string, limit int) ([]carrier.ServicePoint, error) {
		return nil, errors.New("lookup down")
	}
	registry.Register(failing)
	registry.Register(mock.New("PN"))

	results, errs := registry.FindAllServicePoints(context.Background(), "41101", "SE", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "PN", results[0].Carrier)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "DHL")
	assert.Contains(t, errs[0].Error(), "lookup down")
}

func TestRegistry_FindAllServicePoints_NoFinders(t *testing.T) {
	registry := carrier.NewRegistry()

	results, errs := registry.FindAllServicePoints(context.Background(), "11122", "SE", 5)
	assert.Nil(t, results)
	assert.Nil(t, errs)
}
