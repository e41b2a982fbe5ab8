package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushankrgupta/tailorme/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleOrders() []models.Order {
	return []models.Order{
		{Title: "Wedding sherwani", Name: "Ali Raza", UserID: "0300-1111111", OrderStatus: models.StatusCompleted, DeliveryDate: day("2024-06-01")},
		{Title: "Kurta", Name: "Sana Khan", UserID: "0301-2222222", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-06-20")},
		{Title: "Shalwar qameez", Name: "Ali Raza", UserID: "0300-1111111", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-06-10")},
		{Title: "Waistcoat", OrderStatus: models.StatusCompleted},
	}
}

func titles(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Title)
	}
	return out
}

func TestSortOrdersPutsInProgressFirstThenEarliestDelivery(t *testing.T) {
	sorted := SortOrders(sampleOrders())

	assert.Equal(t, []string{"Shalwar qameez", "Kurta", "Wedding sherwani", "Waistcoat"}, titles(sorted))
}

func TestSortOrdersRegardlessOfInputOrder(t *testing.T) {
	completed := models.Order{Title: "late", OrderStatus: models.StatusCompleted, DeliveryDate: day("2024-06-12")}
	inProgress := models.Order{Title: "early", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-06-02")}

	for _, input := range [][]models.Order{{completed, inProgress}, {inProgress, completed}} {
		assert.Equal(t, []string{"early", "late"}, titles(SortOrders(input)))
	}
}

func TestSortOrdersIsIdempotent(t *testing.T) {
	once := SortOrders(sampleOrders())
	twice := SortOrders(once)

	assert.Equal(t, once, twice)
}

func TestSortOrdersIsStableForEqualKeys(t *testing.T) {
	input := []models.Order{
		{Title: "a", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-01-01")},
		{Title: "b", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-01-01")},
		{Title: "c", OrderStatus: models.StatusInProgress, DeliveryDate: day("2024-01-01")},
	}

	assert.Equal(t, []string{"a", "b", "c"}, titles(SortOrders(input)))
}

func TestSortOrdersDoesNotModifyInput(t *testing.T) {
	input := sampleOrders()
	before := titles(input)

	sorted := SortOrders(input)
	sorted[0].Title = "changed"

	assert.Equal(t, before, titles(input))
}

func TestFilterOrdersSearchAndStatus(t *testing.T) {
	orders := sampleOrders()

	tests := []struct {
		name   string
		filter OrderFilter
		want   []string
	}{
		{"empty filter keeps all", OrderFilter{}, []string{"Wedding sherwani", "Kurta", "Shalwar qameez", "Waistcoat"}},
		{"name is case insensitive", OrderFilter{Query: "ali"}, []string{"Wedding sherwani", "Shalwar qameez"}},
		{"phone substring", OrderFilter{Query: "2222"}, []string{"Kurta"}},
		{"title match", OrderFilter{Query: "WAIST"}, []string{"Waistcoat"}},
		{"any token matches", OrderFilter{Query: "kurta waistcoat"}, []string{"Kurta", "Waistcoat"}},
		{"status only", OrderFilter{Status: models.StatusCompleted}, []string{"Wedding sherwani", "Waistcoat"}},
		{"all sentinel", OrderFilter{Status: StatusAll, Query: "sana"}, []string{"Kurta"}},
		{"search and status", OrderFilter{Query: "ali", Status: models.StatusInProgress}, []string{"Shalwar qameez"}},
		{"no match", OrderFilter{Query: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(FilterOrders(orders, tt.filter)))
		})
	}
}

func TestAbsentFieldsNeverMatchASearch(t *testing.T) {
	orders := []models.Order{{}}

	assert.Empty(t, FilterOrders(orders, OrderFilter{Query: "a"}))
	assert.Len(t, FilterOrders(orders, OrderFilter{}), 1)
}

func TestEmptyInputsGiveEmptyOutputs(t *testing.T) {
	assert.NotNil(t, OrderView(nil, OrderFilter{Query: "x"}))
	assert.Empty(t, OrderView(nil, OrderFilter{}))
	assert.NotNil(t, FilterRecords(nil, RecordFilter{}))
	assert.NotNil(t, Customers(nil, ""))
}

func TestOrderViewFiltersThenSorts(t *testing.T) {
	view := OrderView(sampleOrders(), OrderFilter{Query: "ali"})

	assert.Equal(t, []string{"Shalwar qameez", "Wedding sherwani"}, titles(view))
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(sampleOrders())

	assert.Equal(t, 2, counts[models.StatusInProgress])
	assert.Equal(t, 2, counts[models.StatusCompleted])
	assert.Equal(t, 0, CountByStatus(nil)[models.StatusCompleted])
}

func TestFilterRecords(t *testing.T) {
	records := []models.Record{
		{Username: "Bilal", PhoneNumber: "0300-0000001"},
		{Username: "Hina", PhoneNumber: "0333-0000002"},
		{PhoneNumber: "0345-0000003"},
	}

	assert.Len(t, FilterRecords(records, RecordFilter{}), 3)

	got := FilterRecords(records, RecordFilter{Query: "hina"})
	require.Len(t, got, 1)
	assert.Equal(t, "0333-0000002", got[0].PhoneNumber)

	got = FilterRecords(records, RecordFilter{Query: "0345"})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Username)
}

func TestCustomersAreDistinctByPhone(t *testing.T) {
	records := []models.Record{
		{Username: "Bilal", PhoneNumber: "0300-0000001"},
		{Username: "Bilal again", PhoneNumber: "0300-0000001"},
		{PhoneNumber: "0333-0000002"},
		{Username: "No phone"},
	}

	customers := Customers(records, "")
	assert.Equal(t, []Customer{
		{Username: "Bilal", PhoneNumber: "0300-0000001"},
		{Username: "Unnamed Customer", PhoneNumber: "0333-0000002"},
	}, customers)

	assert.Equal(t, []Customer{{Username: "Unnamed Customer", PhoneNumber: "0333-0000002"}}, Customers(records, "unnamed"))
}
