package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raushankrgupta/tailorme/models"
)

var asOf = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func daysBefore(n int) time.Time {
	return asOf.AddDate(0, 0, -n)
}

func order(phone, status, price string, orderDate time.Time) models.Order {
	return models.Order{
		UserID:      phone,
		Name:        "Customer " + phone,
		OrderStatus: status,
		Price:       models.NewPrice(price),
		OrderDate:   orderDate,
	}
}

func amount(t *testing.T, p models.Price) decimal.Decimal {
	t.Helper()
	d, ok := p.Decimal()
	require.True(t, ok, "amount %q is not numeric", p.Raw())
	return d
}

func TestSummarizeCountsAndRevenue(t *testing.T) {
	orders := []models.Order{
		order("a", models.StatusCompleted, "1000", daysBefore(40)),
		order("b", models.StatusCompleted, "500.50", daysBefore(30)),
		order("c", models.StatusInProgress, "9999", daysBefore(2)),
	}

	s := Summarize(orders, asOf)

	assert.Equal(t, 3, s.TotalOrders)
	assert.Equal(t, 2, s.CompletedOrders)
	assert.Equal(t, 1, s.InProgressOrders)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(amount(t, s.TotalRevenue)), s.TotalRevenue.Raw())
	assert.True(t, decimal.RequireFromString("750.25").Equal(amount(t, s.AvgOrderValue)), s.AvgOrderValue.Raw())
}

func TestSummarizeCompletedPlusInProgressEqualsTotal(t *testing.T) {
	orders := []models.Order{
		order("a", models.StatusCompleted, "1", asOf),
		order("b", "", "", asOf),
		order("c", "Unknown", "x", asOf),
		order("d", models.StatusInProgress, "3", asOf),
	}

	s := Summarize(orders, asOf)

	assert.Equal(t, s.TotalOrders, s.CompletedOrders+s.InProgressOrders)
	assert.Equal(t, 3, s.InProgressOrders)
}

func TestSummarizeSkipsMalformedPrices(t *testing.T) {
	orders := []models.Order{
		order("a", models.StatusCompleted, "200", daysBefore(60)),
		order("b", models.StatusCompleted, "two hundred", daysBefore(60)),
		order("c", models.StatusCompleted, "", daysBefore(60)),
	}

	s := Summarize(orders, asOf)

	assert.Equal(t, 3, s.CompletedOrders)
	assert.True(t, decimal.NewFromInt(200).Equal(amount(t, s.TotalRevenue)))
	assert.True(t, decimal.NewFromInt(200).Equal(amount(t, s.AvgOrderValue)), "malformed prices must not enter the denominator")
}

func TestSummarizeAverageIsZeroWithoutCompletedOrders(t *testing.T) {
	s := Summarize([]models.Order{order("a", models.StatusInProgress, "100", asOf)}, asOf)

	assert.Equal(t, 0, s.CompletedOrders)
	assert.True(t, amount(t, s.AvgOrderValue).IsZero())
	assert.True(t, amount(t, s.TotalRevenue).IsZero())

	empty := Summarize(nil, asOf)
	assert.Equal(t, 0, empty.TotalOrders)
	assert.True(t, amount(t, empty.AvgOrderValue).IsZero())
}

func TestActiveCustomersCountsEachCustomerOnce(t *testing.T) {
	orders := []models.Order{
		order("0300-1", models.StatusInProgress, "10", daysBefore(90)),
		order("0300-1", models.StatusInProgress, "10", daysBefore(80)),
	}

	assert.Equal(t, 1, Summarize(orders, asOf).ActiveCustomers)
}

func TestActiveCustomersWindow(t *testing.T) {
	orders := []models.Order{
		order("recent", models.StatusCompleted, "10", daysBefore(3)),
		order("edge", models.StatusCompleted, "10", daysBefore(14)),
		order("stale", models.StatusCompleted, "10", daysBefore(15)),
		order("future", models.StatusCompleted, "10", asOf.AddDate(0, 0, 5)),
		order("undated", models.StatusCompleted, "10", time.Time{}),
		order("", models.StatusInProgress, "10", asOf),
	}

	assert.Equal(t, 3, Summarize(orders, asOf).ActiveCustomers)
}

func TestCalculatorUsesConfiguredWindow(t *testing.T) {
	orders := []models.Order{order("a", models.StatusCompleted, "10", daysBefore(20))}

	assert.Equal(t, 0, Summarize(orders, asOf).ActiveCustomers)
	assert.Equal(t, 1, Calculator{ActiveWindow: 30 * 24 * time.Hour}.Summarize(orders, asOf).ActiveCustomers)
}

func TestLeaderboardRanksByCountWithFirstSeenTieBreak(t *testing.T) {
	orders := []models.Order{
		{UserID: "b", Name: "Bilal"},
		{UserID: "a", Name: "Asad"},
		{UserID: "c", Name: "Chand"},
		{UserID: "c", Name: "Chand Bibi"},
		{UserID: "a", Name: "Asad"},
		{UserID: "", Name: "Walk-in"},
		{UserID: "d"},
	}

	board := Leaderboard(orders, 0)

	require.Len(t, board, 4)
	assert.Equal(t, LeaderboardEntry{Rank: 1, PhoneNumber: "a", Name: "Asad", OrderCount: 2}, board[0])
	assert.Equal(t, LeaderboardEntry{Rank: 2, PhoneNumber: "c", Name: "Chand Bibi", OrderCount: 2}, board[1])
	assert.Equal(t, LeaderboardEntry{Rank: 3, PhoneNumber: "b", Name: "Bilal", OrderCount: 1}, board[2])
	assert.Equal(t, LeaderboardEntry{Rank: 4, PhoneNumber: "d", Name: "Unknown Customer", OrderCount: 1}, board[3])
}

func TestLeaderboardTopN(t *testing.T) {
	orders := []models.Order{{UserID: "a"}, {UserID: "b"}, {UserID: "b"}, {UserID: "c"}}

	top := Leaderboard(orders, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].PhoneNumber)
	assert.Equal(t, "a", top[1].PhoneNumber)

	assert.Len(t, Leaderboard(orders, 10), 3)
	assert.Empty(t, Leaderboard(nil, 5))
}

func TestDashboard(t *testing.T) {
	orders := []models.Order{order("a", models.StatusCompleted, "100", daysBefore(1))}
	records := []models.Record{{PhoneNumber: "a"}, {PhoneNumber: "b"}}

	d := Calculator{ActiveWindow: DefaultActiveWindow}.Dashboard(orders, records, asOf, 5)

	assert.Equal(t, 2, d.TotalCustomers)
	assert.Equal(t, 1, d.TotalOrders)
	assert.Equal(t, 50, d.ActiveCustomerPercent)
	assert.Len(t, d.Leaderboard, 1)
}

func TestDashboardPercentWithoutCustomers(t *testing.T) {
	orders := []models.Order{order("a", models.StatusInProgress, "100", asOf)}

	d := Calculator{ActiveWindow: DefaultActiveWindow}.Dashboard(orders, nil, asOf, 5)

	assert.Equal(t, 1, d.ActiveCustomers)
	assert.Equal(t, 0, d.TotalCustomers)
	assert.Equal(t, 0, d.ActiveCustomerPercent)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 25, Percent(1, 4))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(5, 5))
}

func TestDashboardMoneyIsNumeric(t *testing.T) {
	orders := []models.Order{
		order("a", models.StatusCompleted, "100", asOf),
		order("b", models.StatusCompleted, "50.5", asOf),
	}

	data, err := json.Marshal(Summarize(orders, asOf))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_revenue":150.5`)
	assert.Contains(t, string(data), `"avg_order_value":75.25`)

	data, err = json.Marshal(Summarize(nil, asOf))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_revenue":0`)
}
