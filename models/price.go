package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Price is an order price as it was stored. Older documents may hold the
// price as text, a number or nothing at all, so the raw form is kept and
// parsed on demand.
type Price struct {
	raw string
}

// NewPrice wraps a raw price string.
func NewPrice(raw string) Price {
	return Price{raw: strings.TrimSpace(raw)}
}

// PriceFromDecimal builds a price from an already parsed amount.
func PriceFromDecimal(d decimal.Decimal) Price {
	return Price{raw: d.String()}
}

// Raw returns the price exactly as it was stored or submitted.
func (p Price) Raw() string {
	return p.raw
}

// Decimal parses the price. ok is false for missing or non-numeric prices.
func (p Price) Decimal() (d decimal.Decimal, ok bool) {
	if p.raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(p.raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// MarshalJSON writes valid prices as numbers and anything else as the raw text.
func (p Price) MarshalJSON() ([]byte, error) {
	if d, ok := p.Decimal(); ok {
		return []byte(d.String()), nil
	}
	if p.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(p.raw)
}

// UnmarshalJSON accepts a number, a string or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		p.raw = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = NewPrice(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	p.raw = n.String()
	return nil
}

// MarshalBSONValue stores valid prices as doubles, matching what the mobile
// client used to write.
func (p Price) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if d, ok := p.Decimal(); ok {
		f, _ := d.Float64()
		return bson.MarshalValue(f)
	}
	if p.raw == "" {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(p.raw)
}

// UnmarshalBSONValue reads numbers and strings; any other stored type is
// treated as a missing price.
func (p *Price) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDouble:
		p.raw = strconv.FormatFloat(rv.Double(), 'f', -1, 64)
	case bson.TypeInt32:
		p.raw = strconv.FormatInt(int64(rv.Int32()), 10)
	case bson.TypeInt64:
		p.raw = strconv.FormatInt(rv.Int64(), 10)
	case bson.TypeDecimal128:
		p.raw = rv.Decimal128().String()
	case bson.TypeString:
		p.raw = strings.TrimSpace(rv.StringValue())
	default:
		p.raw = ""
	}
	return nil
}
