// Package stats computes the tailor dashboard figures from an order snapshot.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/raushankrgupta/tailorme/models"
)

// DefaultActiveWindow is how recent an order must be for its customer to
// count as active.
const DefaultActiveWindow = 14 * 24 * time.Hour

// Stats summarizes one tailor's orders. Money is reported as models.Price so
// it goes over the wire as a number, like order prices.
type Stats struct {
	TotalOrders      int          `json:"total_orders"`
	CompletedOrders  int          `json:"completed_orders"`
	InProgressOrders int          `json:"in_progress_orders"`
	TotalRevenue     models.Price `json:"total_revenue"`
	AvgOrderValue    models.Price `json:"avg_order_value"`
	ActiveCustomers  int          `json:"active_customers"`
}

// LeaderboardEntry is one customer ranked by order count.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	OrderCount  int    `json:"order_count"`
}

// Dashboard is everything the statistics screen shows.
type Dashboard struct {
	Stats
	TotalCustomers int `json:"total_customers"`
	// ActiveCustomerPercent is ActiveCustomers against TotalCustomers, rounded
	// to a whole percent. It can pass 100 when orders name customers without
	// a record.
	ActiveCustomerPercent int                `json:"active_customer_percent"`
	Leaderboard           []LeaderboardEntry `json:"leaderboard"`
}

// Calculator holds the tunables of the aggregate figures.
type Calculator struct {
	ActiveWindow time.Duration
}

// Summarize uses the default 14 day activity window.
func Summarize(orders []models.Order, asOf time.Time) Stats {
	return Calculator{ActiveWindow: DefaultActiveWindow}.Summarize(orders, asOf)
}

// Summarize computes order counts, revenue over completed orders, the average
// completed order value and the number of active customers as of asOf.
func (c Calculator) Summarize(orders []models.Order, asOf time.Time) Stats {
	var s Stats
	revenue, avg := decimal.Zero, decimal.Zero
	priced := 0
	active := make(map[string]struct{})

	for _, order := range orders {
		s.TotalOrders++
		completed := order.OrderStatus == models.StatusCompleted
		if completed {
			s.CompletedOrders++
			if price, ok := order.Price.Decimal(); ok {
				revenue = revenue.Add(price)
				priced++
			}
		}

		if order.UserID == "" {
			continue
		}
		if !completed || c.isRecent(order.OrderDate, asOf) {
			active[order.UserID] = struct{}{}
		}
	}

	s.InProgressOrders = s.TotalOrders - s.CompletedOrders
	if priced > 0 {
		avg = revenue.Div(decimal.NewFromInt(int64(priced)))
	}
	s.TotalRevenue = models.PriceFromDecimal(revenue)
	s.AvgOrderValue = models.PriceFromDecimal(avg)
	s.ActiveCustomers = len(active)
	return s
}

// isRecent reports whether orderDate is no more than the window before asOf.
// Order dates in the future count as recent.
func (c Calculator) isRecent(orderDate, asOf time.Time) bool {
	if orderDate.IsZero() {
		return false
	}
	return asOf.Sub(orderDate) <= c.ActiveWindow
}

// Leaderboard ranks customers by order count, most orders first. Ties keep
// the order in which customers first appear. n <= 0 returns every customer.
func Leaderboard(orders []models.Order, n int) []LeaderboardEntry {
	index := make(map[string]int)
	entries := make([]LeaderboardEntry, 0)

	for _, order := range orders {
		if order.UserID == "" {
			continue
		}
		name := order.Name
		if name == "" {
			name = "Unknown Customer"
		}
		if i, ok := index[order.UserID]; ok {
			entries[i].OrderCount++
			entries[i].Name = name
			continue
		}
		index[order.UserID] = len(entries)
		entries = append(entries, LeaderboardEntry{PhoneNumber: order.UserID, Name: name, OrderCount: 1})
	}

	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return b.OrderCount - a.OrderCount
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Dashboard combines the order summary, the customer count and the top n leaderboard.
func (c Calculator) Dashboard(orders []models.Order, records []models.Record, asOf time.Time, n int) Dashboard {
	s := c.Summarize(orders, asOf)
	return Dashboard{
		Stats:                 s,
		TotalCustomers:        len(records),
		ActiveCustomerPercent: Percent(s.ActiveCustomers, len(records)),
		Leaderboard:           Leaderboard(orders, n),
	}
}

// Percent returns part of whole as a rounded whole percent, 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
