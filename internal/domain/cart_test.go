package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSubtotal_FixedAndWeight(t *testing.T) {
	items := []LineItem{
		{ProductID: "a", PricingType: PricingFixed, BasePrice: 8.99, Quantity: 2},
		{ProductID: "b", PricingType: PricingWeight, BasePrice: 5.00, EstimatedWeight: ptr(1.5), Quantity: 3},
	}

	assert.True(t, decimal.RequireFromString("40.48").Equal(Subtotal(items)), "got %s", Subtotal(items))
	assert.Equal(t, 5, ItemCount(items))
}

func TestSubtotal_SalePriceWins(t *testing.T) {
	items := []LineItem{
		{ProductID: "a", PricingType: PricingFixed, BasePrice: 10, SalePrice: ptr(7.5), Quantity: 2},
	}
	assert.Equal(t, "15", Subtotal(items).String())
}

func TestSubtotal_WeightWithoutEstimate(t *testing.T) {
	items := []LineItem{
		{ProductID: "a", PricingType: PricingWeight, BasePrice: 4.25, Quantity: 2},
	}
	assert.Equal(t, "8.5", Subtotal(items).String())
}

func TestSubtotal_Empty(t *testing.T) {
	assert.True(t, Subtotal(nil).IsZero())
	assert.Equal(t, 0, ItemCount(nil))
	assert.False(t, HasCoopItems(nil))
}

func TestHasCoopItems(t *testing.T) {
	items := []LineItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 1, IsCoopItem: true}}
	assert.True(t, HasCoopItems(items))
}

func TestNormalize_FoldsDuplicatesAndDropsEmpty(t *testing.T) {
	items := []LineItem{
		{ID: "1", ProductID: "a", Quantity: 1},
		{ID: "2", ProductID: "a", VariantID: "v1", Quantity: 2},
		{ID: "3", ProductID: "a", Quantity: 4},
		{ID: "4", ProductID: "b", Quantity: 0},
		{ID: "5", ProductID: "c", Quantity: -1},
	}

	out := Normalize(items)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, 5, out[0].Quantity)
	assert.Equal(t, "v1", out[1].VariantID)
}

func TestSnapshotClone_IsDeep(t *testing.T) {
	s := Snapshot{
		Items:       []LineItem{{ProductID: "a", Quantity: 1, SalePrice: ptr(2.0), BundleItems: []BundleItem{{ProductID: "x", Quantity: 1}}}},
		Fulfillment: Fulfillment{Type: FulfillmentDelivery, Address: &Address{City: "Lancaster"}},
	}

	c := s.Clone()
	*c.Items[0].SalePrice = 3
	c.Items[0].BundleItems[0].Quantity = 9
	c.Fulfillment.Address.City = "York"

	assert.Equal(t, 2.0, *s.Items[0].SalePrice)
	assert.Equal(t, 1, s.Items[0].BundleItems[0].Quantity)
	assert.Equal(t, "Lancaster", s.Fulfillment.Address.City)
}

func TestFulfillmentMerge(t *testing.T) {
	f := Fulfillment{Type: FulfillmentPickup, LocationID: "farm"}

	delivery := FulfillmentDelivery
	zone := "zone-1"
	out := f.Merge(FulfillmentPatch{Type: &delivery, ZoneID: &zone, Address: &Address{Line1: "1 Main"}})

	assert.Equal(t, FulfillmentDelivery, out.Type)
	assert.Equal(t, "farm", out.LocationID, "fields not in the patch are left alone")
	assert.Equal(t, "zone-1", out.ZoneID)
	require.NotNil(t, out.Address)
	assert.True(t, out.NeedsAddress())
	assert.Equal(t, FulfillmentPickup, f.Type)

	cleared := out.Merge(FulfillmentPatch{ClearAddress: true})
	assert.Nil(t, cleared.Address)
}

func TestFulfillmentTypeValid(t *testing.T) {
	assert.True(t, FulfillmentShipping.Valid())
	assert.True(t, FulfillmentUnset.Valid())
	assert.False(t, FulfillmentType("teleport").Valid())
}
