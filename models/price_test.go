package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type pricedDoc struct {
	Price Price `bson:"price" json:"price"`
}

func TestPriceBSONRoundTrip(t *testing.T) {
	tests := map[string]struct {
		in       Price
		wantType bsontype.Type
		wantRaw  string
	}{
		"number": {in: NewPrice("2500.5"), wantType: bson.TypeDouble, wantRaw: "2500.5"},
		"text":   {in: NewPrice("two hundred"), wantType: bson.TypeString, wantRaw: "two hundred"},
		"empty":  {in: NewPrice(""), wantType: bson.TypeNull, wantRaw: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := bson.Marshal(pricedDoc{Price: tc.in})
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, bson.Raw(data).Lookup("price").Type)

			var out pricedDoc
			require.NoError(t, bson.Unmarshal(data, &out))
			assert.Equal(t, tc.wantRaw, out.Price.Raw())
		})
	}
}

func TestPriceReadsLegacyBSONTypes(t *testing.T) {
	data, err := bson.Marshal(bson.D{{Key: "price", Value: int64(900)}})
	require.NoError(t, err)

	var out pricedDoc
	require.NoError(t, bson.Unmarshal(data, &out))
	assert.Equal(t, "900", out.Price.Raw())

	data, err = bson.Marshal(bson.D{{Key: "price", Value: true}})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(data, &out))
	assert.Equal(t, "", out.Price.Raw(), "unknown types read as missing")
}

func TestPriceJSON(t *testing.T) {
	data, err := json.Marshal(pricedDoc{Price: PriceFromDecimal(decimal.RequireFromString("150.50"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":150.5}`, string(data))

	data, err = json.Marshal(pricedDoc{Price: NewPrice("ask")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"ask"}`, string(data))

	var in pricedDoc
	require.NoError(t, json.Unmarshal([]byte(`{"price":null}`), &in))
	assert.Equal(t, "", in.Price.Raw())
	require.NoError(t, json.Unmarshal([]byte(`{"price":" 75 "}`), &in))
	assert.Equal(t, "75", in.Price.Raw())
}
