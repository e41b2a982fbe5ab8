// Package orders manages tailor orders and their status lifecycle.
//
// An order starts In-Progress and toggles between In-Progress and Completed.
// Its status only changes through ToggleStatus and SetStatus; Update never
// touches it.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/stats"
	"github.com/raushankrgupta/tailorme/store"
)

// CreateInput is a new order as submitted by the tailor. Dates are
// YYYY-MM-DD or RFC 3339; an empty order date means today.
type CreateInput struct {
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	FabricType    string       `json:"fabric_type"`
	Style         string       `json:"style"`
	Price         models.Price `json:"price"`
	OrderDate     string       `json:"order_date"`
	DeliveryDate  string       `json:"delivery_date"`
	CustomerPhone string       `json:"user_id"`
	CustomerName  string       `json:"name"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Title        *string       `json:"title"`
	Description  *string       `json:"description"`
	FabricType   *string       `json:"fabric_type"`
	Style        *string       `json:"style"`
	Price        *models.Price `json:"price"`
	OrderDate    *string       `json:"order_date"`
	DeliveryDate *string       `json:"delivery_date"`
}

type Service struct {
	store           store.Store
	calc            stats.Calculator
	leaderboardSize int
	now             func() time.Time
}

func NewService(s store.Store, calc stats.Calculator, leaderboardSize int) *Service {
	return &Service{store: s, calc: calc, leaderboardSize: leaderboardSize, now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(field, value string) (time.Time, error) {
	t, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("Invalid %s, use YYYY-MM-DD", field))
	}
	return t, nil
}

// validate checks the fields every stored order must satisfy.
func validate(u models.OrderUpdate) error {
	if strings.TrimSpace(u.Title) == "" {
		return apperrors.NewValidationError("Title is required")
	}
	if _, ok := u.Price.Decimal(); !ok {
		return apperrors.NewValidationError("Price must be a number")
	}
	if !u.DeliveryDate.IsZero() && u.DeliveryDate.Before(u.OrderDate) {
		return apperrors.NewValidationError("Delivery date cannot be before order date")
	}
	return nil
}

func mapStoreError(err error, action string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError("Order not found")
	}
	return fmt.Errorf("failed to %s order: %w", action, err)
}

// Create validates and stores a new In-Progress order. When no customer name
// is given, the name on the tailor's record for that phone number is used.
func (s *Service) Create(ctx context.Context, tailorID string, in CreateInput) (*models.Order, error) {
	fields := models.OrderUpdate{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		FabricType:  strings.TrimSpace(in.FabricType),
		Style:       strings.TrimSpace(in.Style),
		Price:       in.Price,
	}
	var err error
	if fields.OrderDate, err = parseDate("order date", in.OrderDate); err != nil {
		return nil, err
	}
	if fields.OrderDate.IsZero() {
		fields.OrderDate = s.today()
	}
	if fields.DeliveryDate, err = parseDate("delivery date", in.DeliveryDate); err != nil {
		return nil, err
	}
	if err := validate(fields); err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(in.CustomerPhone)
	if phone == "" {
		return nil, apperrors.NewValidationError("Please select a customer")
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		name = s.customerName(ctx, tailorID, phone)
	}

	now := s.now()
	order := &models.Order{
		Title:        fields.Title,
		Description:  fields.Description,
		FabricType:   fields.FabricType,
		Style:        fields.Style,
		Price:        fields.Price,
		OrderStatus:  models.StatusInProgress,
		OrderDate:    fields.OrderDate,
		DeliveryDate: fields.DeliveryDate,
		UserID:       phone,
		Name:         name,
		TailorID:     tailorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, mapStoreError(err, "create")
	}
	return order, nil
}

func (s *Service) customerName(ctx context.Context, tailorID, phone string) string {
	user, err := s.store.GetUserByID(ctx, tailorID)
	if err != nil {
		return ""
	}
	for _, r := range user.Records {
		if r.PhoneNumber == phone {
			return r.Username
		}
	}
	return ""
}

// Get returns one of the tailor's orders. Orders of other tailors are not found.
func (s *Service) Get(ctx context.Context, tailorID, id string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load")
	}
	if order.TailorID != tailorID {
		return nil, apperrors.NewNotFoundError("Order not found")
	}
	return order, nil
}

// Update applies a partial edit. The merged order must still pass the
// creation checks. Status is never changed here.
func (s *Service) Update(ctx context.Context, tailorID, id string, in UpdateInput) (*models.Order, error) {
	current, err := s.Get(ctx, tailorID, id)
	if err != nil {
		return nil, err
	}

	fields := models.OrderUpdate{
		Title:        current.Title,
		Description:  current.Description,
		FabricType:   current.FabricType,
		Style:        current.Style,
		Price:        current.Price,
		OrderDate:    current.OrderDate,
		DeliveryDate: current.DeliveryDate,
	}
	if in.Title != nil {
		fields.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields.Description = strings.TrimSpace(*in.Description)
	}
	if in.FabricType != nil {
		fields.FabricType = strings.TrimSpace(*in.FabricType)
	}
	if in.Style != nil {
		fields.Style = strings.TrimSpace(*in.Style)
	}
	if in.Price != nil {
		fields.Price = *in.Price
	}
	if in.OrderDate != nil {
		if fields.OrderDate, err = parseDate("order date", *in.OrderDate); err != nil {
			return nil, err
		}
	}
	if in.DeliveryDate != nil {
		if fields.DeliveryDate, err = parseDate("delivery date", *in.DeliveryDate); err != nil {
			return nil, err
		}
	}
	if err := validate(fields); err != nil {
		return nil, err
	}

	order, err := s.store.UpdateOrder(ctx, tailorID, id, fields)
	if err != nil {
		return nil, mapStoreError(err, "update")
	}
	return order, nil
}

// ToggleStatus flips In-Progress and Completed.
func (s *Service) ToggleStatus(ctx context.Context, tailorID, id string) (*models.Order, error) {
	current, err := s.Get(ctx, tailorID, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, tailorID, id, models.NextStatus(current.OrderStatus))
}

// SetStatus moves the order to an explicit status.
func (s *Service) SetStatus(ctx context.Context, tailorID, id, status string) (*models.Order, error) {
	if !models.IsValidStatus(status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Status must be %s or %s", models.StatusInProgress, models.StatusCompleted))
	}
	return s.setStatus(ctx, tailorID, id, status)
}

func (s *Service) setStatus(ctx context.Context, tailorID, id, status string) (*models.Order, error) {
	order, err := s.store.SetOrderStatus(ctx, tailorID, id, status)
	if err != nil {
		return nil, mapStoreError(err, "update")
	}
	return order, nil
}

// Delete removes the order permanently.
func (s *Service) Delete(ctx context.Context, tailorID, id string) error {
	if err := s.store.DeleteOrder(ctx, tailorID, id); err != nil {
		return mapStoreError(err, "delete")
	}
	return nil
}

// ListForTailor returns the tailor's orders filtered and sorted for display.
func (s *Service) ListForTailor(ctx context.Context, tailorID string, filter listing.OrderFilter) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, store.OrderQuery{TailorID: tailorID})
	if err != nil {
		return nil, mapStoreError(err, "list")
	}
	return listing.OrderView(orders, filter), nil
}

// ListForCustomer returns the tailor's orders for one customer phone number.
func (s *Service) ListForCustomer(ctx context.Context, tailorID, phone string) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, store.OrderQuery{TailorID: tailorID, CustomerPhone: strings.TrimSpace(phone)})
	if err != nil {
		return nil, mapStoreError(err, "list")
	}
	return listing.SortOrders(orders), nil
}

// Dashboard computes the statistics screen from the current orders and records.
func (s *Service) Dashboard(ctx context.Context, tailorID string) (stats.Dashboard, error) {
	orders, err := s.store.ListOrders(ctx, store.OrderQuery{TailorID: tailorID})
	if err != nil {
		return stats.Dashboard{}, mapStoreError(err, "list")
	}
	user, err := s.store.GetUserByID(ctx, tailorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return stats.Dashboard{}, apperrors.NewNotFoundError("User not found")
		}
		return stats.Dashboard{}, fmt.Errorf("failed to load records: %w", err)
	}
	return s.buildDashboard(orders, user.Records), nil
}

// buildDashboard computes the statistics screen for an order snapshot.
func (s *Service) buildDashboard(orders []models.Order, records []models.Record) stats.Dashboard {
	return s.calc.Dashboard(orders, records, s.now(), s.leaderboardSize)
}

// Watch subscribes to the tailor's orders.
func (s *Service) Watch(ctx context.Context, tailorID string) (*store.Subscription[[]models.Order], error) {
	return s.store.WatchOrders(ctx, store.OrderQuery{TailorID: tailorID})
}

// WatchDashboard recomputes the statistics screen whenever the tailor's
// orders or record list change.
func (s *Service) WatchDashboard(ctx context.Context, tailorID string) (*store.Subscription[stats.Dashboard], error) {
	user, err := s.store.WatchUser(ctx, tailorID)
	if err != nil {
		return nil, mapStoreError(err, "watch")
	}
	orders, err := s.store.WatchOrders(ctx, store.OrderQuery{TailorID: tailorID})
	if err != nil {
		user.Close()
		return nil, mapStoreError(err, "watch")
	}
	return store.Combine(user, orders, func(u *models.User, all []models.Order) stats.Dashboard {
		return s.buildDashboard(all, u.Records)
	}), nil
}

// WatchOne subscribes to one of the tailor's orders.
func (s *Service) WatchOne(ctx context.Context, tailorID, id string) (*store.Subscription[store.OrderSnapshot], error) {
	if _, err := s.Get(ctx, tailorID, id); err != nil {
		return nil, err
	}
	sub, err := s.store.WatchOrder(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "watch")
	}
	return sub, nil
}
