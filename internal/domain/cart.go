package domain

import "time"

type PricingType string

const (
	PricingFixed  PricingType = "fixed"
	PricingWeight PricingType = "weight"
)

// BundleItem is one constituent product of a bundle line.
type BundleItem struct {
	ProductID string `json:"productId" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// LineItem is a single cart line. Price and display fields are snapshots taken
// when the product was added.
type LineItem struct {
	ID              string       `json:"id" bson:"id"`
	ProductID       string       `json:"productId" bson:"product_id"`
	VariantID       string       `json:"variantId,omitempty" bson:"variant_id,omitempty"`
	PricingType     PricingType  `json:"pricingType" bson:"pricing_type"`
	BasePrice       float64      `json:"basePrice" bson:"base_price"`
	SalePrice       *float64     `json:"salePrice,omitempty" bson:"sale_price,omitempty"`
	WeightUnit      string       `json:"weightUnit,omitempty" bson:"weight_unit,omitempty"`
	EstimatedWeight *float64     `json:"estimatedWeight,omitempty" bson:"estimated_weight,omitempty"`
	Quantity        int          `json:"quantity" bson:"quantity"`
	Name            string       `json:"name" bson:"name"`
	Slug            string       `json:"slug" bson:"slug"`
	ImageURL        string       `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	IsBundle        bool         `json:"isBundle,omitempty" bson:"is_bundle,omitempty"`
	BundleItems     []BundleItem `json:"bundleItems,omitempty" bson:"bundle_items,omitempty"`
	IsCoopItem      bool         `json:"isCoopItem,omitempty" bson:"is_coop_item,omitempty"`
}

// ItemKey identifies a line by product and variant. A cart holds at most one
// line per key.
type ItemKey struct {
	ProductID string
	VariantID string
}

func (i LineItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Snapshot is the replicated unit: what the device mirror and the remote
// record both hold.
type Snapshot struct {
	Items       []LineItem  `json:"items" bson:"items"`
	Fulfillment Fulfillment `json:"fulfillment" bson:"fulfillment"`
}

// Clone returns a deep copy so callers can hand snapshots across goroutines.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Items:       CloneItems(s.Items),
		Fulfillment: s.Fulfillment.Clone(),
	}
}

func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.SalePrice != nil {
			v := *item.SalePrice
			out[i].SalePrice = &v
		}
		if item.EstimatedWeight != nil {
			v := *item.EstimatedWeight
			out[i].EstimatedWeight = &v
		}
		if item.BundleItems != nil {
			out[i].BundleItems = append([]BundleItem(nil), item.BundleItems...)
		}
	}
	return out
}

// Normalize drops non-positive lines and folds lines sharing a key into the
// first one. Used on anything read from outside the process.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[ItemKey]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if i, ok := index[item.Key()]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.Key()] = len(out)
		out = append(out, item)
	}
	return out
}

// CartRecord is the remote per-user copy of a cart.
type CartRecord struct {
	ID          string      `json:"-" bson:"_id,omitempty"`
	UserID      string      `json:"userId" bson:"user_id"`
	Items       []LineItem  `json:"items" bson:"items"`
	Fulfillment Fulfillment `json:"fulfillment" bson:"fulfillment"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updated_at"`
}

func (c CartRecord) Snapshot() Snapshot {
	return Snapshot{Items: CloneItems(c.Items), Fulfillment: c.Fulfillment.Clone()}
}

// InventoryWarning reports a line whose requested quantity exceeded live
// stock. Never persisted.
type InventoryWarning struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Removed   bool   `json:"removed"`
}
