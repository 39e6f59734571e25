package domain

type FulfillmentType string

const (
	FulfillmentUnset    FulfillmentType = ""
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
	FulfillmentShipping FulfillmentType = "shipping"
)

func (t FulfillmentType) Valid() bool {
	switch t {
	case FulfillmentUnset, FulfillmentPickup, FulfillmentDelivery, FulfillmentShipping:
		return true
	}
	return false
}

type Address struct {
	Line1      string `json:"line1" bson:"line1"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postalCode" bson:"postal_code"`
}

// Fulfillment is how the order will reach the customer. LocationID applies to
// pickup and ZoneID to delivery; fields for other types are left as they are.
type Fulfillment struct {
	Type          FulfillmentType `json:"type" bson:"type"`
	LocationID    string          `json:"locationId,omitempty" bson:"location_id,omitempty"`
	ZoneID        string          `json:"zoneId,omitempty" bson:"zone_id,omitempty"`
	ScheduledDate string          `json:"scheduledDate,omitempty" bson:"scheduled_date,omitempty"`
	Address       *Address        `json:"address,omitempty" bson:"address,omitempty"`
}

func (f Fulfillment) Clone() Fulfillment {
	if f.Address != nil {
		a := *f.Address
		f.Address = &a
	}
	return f
}

func (f Fulfillment) NeedsAddress() bool {
	return f.Type == FulfillmentDelivery || f.Type == FulfillmentShipping
}

// FulfillmentPatch carries the fields a caller wants to overwrite. Nil means
// "leave as is". ClearAddress drops the address regardless of Address.
type FulfillmentPatch struct {
	Type          *FulfillmentType
	LocationID    *string
	ZoneID        *string
	ScheduledDate *string
	Address       *Address
	ClearAddress  bool
}

// Merge applies p on top of f, field by field.
func (f Fulfillment) Merge(p FulfillmentPatch) Fulfillment {
	out := f.Clone()
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.LocationID != nil {
		out.LocationID = *p.LocationID
	}
	if p.ZoneID != nil {
		out.ZoneID = *p.ZoneID
	}
	if p.ScheduledDate != nil {
		out.ScheduledDate = *p.ScheduledDate
	}
	if p.ClearAddress {
		out.Address = nil
	} else if p.Address != nil {
		a := *p.Address
		out.Address = &a
	}
	return out
}
