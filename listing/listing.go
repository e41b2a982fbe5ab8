// Package listing derives display lists from raw order and record snapshots.
// Every function is pure: inputs are never modified and results are fresh slices.
package listing

import (
	"slices"
	"strings"

	"github.com/raushankrgupta/tailorme/models"
)

// StatusAll matches orders of every status.
const StatusAll = "All"

const unnamedCustomer = "Unnamed Customer"

// OrderFilter is the search and status state of an order list.
type OrderFilter struct {
	Query  string
	Status string
}

// RecordFilter is the search state of a customer record list.
type RecordFilter struct {
	Query string
}

// Customer is one distinct customer taken from a tailor's records.
type Customer struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
}

// tokens splits a query into lower-cased search terms.
func tokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchesAny reports whether any field contains any token. With no tokens
// everything matches; empty fields never match.
func matchesAny(terms []string, fields ...string) bool {
	if len(terms) == 0 {
		return true
	}
	for _, field := range fields {
		if field == "" {
			continue
		}
		lowered := strings.ToLower(field)
		for _, term := range terms {
			if strings.Contains(lowered, term) {
				return true
			}
		}
	}
	return false
}

func statusMatches(filter, status string) bool {
	return filter == "" || filter == StatusAll || filter == status
}

// FilterOrders keeps orders whose customer name, customer phone or title
// matches the query and whose status matches the status filter.
func FilterOrders(orders []models.Order, filter OrderFilter) []models.Order {
	terms := tokens(filter.Query)
	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if !statusMatches(filter.Status, order.OrderStatus) {
			continue
		}
		if !matchesAny(terms, order.Name, order.UserID, order.Title) {
			continue
		}
		result = append(result, order)
	}
	return result
}

func statusRank(status string) int {
	if status == models.StatusInProgress {
		return 0
	}
	return 1
}

func compareOrders(a, b models.Order) int {
	if ra, rb := statusRank(a.OrderStatus), statusRank(b.OrderStatus); ra != rb {
		return ra - rb
	}
	switch {
	case a.DeliveryDate.IsZero() && b.DeliveryDate.IsZero():
		return 0
	case a.DeliveryDate.IsZero():
		return 1
	case b.DeliveryDate.IsZero():
		return -1
	}
	return a.DeliveryDate.Compare(b.DeliveryDate)
}

// SortOrders returns the orders with In-Progress first, then by earliest
// delivery date. Orders without a delivery date go last in their group.
func SortOrders(orders []models.Order) []models.Order {
	sorted := slices.Clone(orders)
	if sorted == nil {
		sorted = []models.Order{}
	}
	slices.SortStableFunc(sorted, compareOrders)
	return sorted
}

// OrderView filters then sorts, producing the list an order screen shows.
func OrderView(orders []models.Order, filter OrderFilter) []models.Order {
	return SortOrders(FilterOrders(orders, filter))
}

// CountByStatus counts orders per status.
func CountByStatus(orders []models.Order) map[string]int {
	counts := map[string]int{
		models.StatusInProgress: 0,
		models.StatusCompleted:  0,
	}
	for _, order := range orders {
		counts[order.OrderStatus]++
	}
	return counts
}

// FilterRecords keeps records whose username or phone number matches the query.
func FilterRecords(records []models.Record, filter RecordFilter) []models.Record {
	terms := tokens(filter.Query)
	result := make([]models.Record, 0, len(records))
	for _, record := range records {
		if matchesAny(terms, record.Username, record.PhoneNumber) {
			result = append(result, record)
		}
	}
	return result
}

// Customers lists distinct customers by phone number in first-seen order,
// optionally narrowed by query. Records without a phone number are skipped.
func Customers(records []models.Record, query string) []Customer {
	terms := tokens(query)
	seen := make(map[string]bool, len(records))
	result := make([]Customer, 0, len(records))
	for _, record := range records {
		if record.PhoneNumber == "" || seen[record.PhoneNumber] {
			continue
		}
		seen[record.PhoneNumber] = true
		name := record.Username
		if name == "" {
			name = unnamedCustomer
		}
		if !matchesAny(terms, name, record.PhoneNumber) {
			continue
		}
		result = append(result, Customer{Username: name, PhoneNumber: record.PhoneNumber})
	}
	return result
}
