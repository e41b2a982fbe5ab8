package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raushankrgupta/tailorme/models"
)

// Memory is an in-process Store. It backs STORE_BACKEND=memory and the
// package tests of every service.
type Memory struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]*models.User
	orders   map[primitive.ObjectID]*models.Order
	orderSeq []primitive.ObjectID

	feedMu sync.Mutex
	feeds  map[*memoryFeed]struct{}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[primitive.ObjectID]*models.User),
		orders: make(map[primitive.ObjectID]*models.Order),
		feeds:  make(map[*memoryFeed]struct{}),
	}
}

// memoryFeed fires after every committed write. Notifications coalesce.
type memoryFeed struct {
	m  *Memory
	ch chan struct{}
}

func (f *memoryFeed) Next(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-f.ch:
		return true
	}
}

func (f *memoryFeed) Err() error { return nil }

func (f *memoryFeed) Close(context.Context) error {
	f.m.feedMu.Lock()
	delete(f.m.feeds, f)
	f.m.feedMu.Unlock()
	return nil
}

func (m *Memory) newFeed() *memoryFeed {
	f := &memoryFeed{m: m, ch: make(chan struct{}, 1)}
	m.feedMu.Lock()
	m.feeds[f] = struct{}{}
	m.feedMu.Unlock()
	return f
}

func (m *Memory) notify() {
	m.feedMu.Lock()
	defer m.feedMu.Unlock()
	for f := range m.feeds {
		select {
		case f.ch <- struct{}{}:
		default:
		}
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Records = slices.Clone(u.Records)
	if u.Measurements != nil {
		ms := *u.Measurements
		c.Measurements = &ms
	}
	return &c
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	return &c
}

func (m *Memory) user(uid string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		return nil, ErrNotFound
	}
	u, ok := m.users[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *Memory) ownedOrder(tailorID, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	o, ok := m.orders[oid]
	if !ok || o.TailorID != tailorID {
		return nil, ErrNotFound
	}
	return o, nil
}

// mutate runs fn under the write lock and notifies watchers when fn succeeds.
func (m *Memory) mutate(fn func() error) error {
	m.mu.Lock()
	err := fn()
	m.mu.Unlock()
	if err == nil {
		m.notify()
	}
	return err
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	return m.mutate(func() error {
		for _, existing := range m.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return ErrDuplicateEmail
			}
		}
		if user.ID.IsZero() {
			user.ID = primitive.NewObjectID()
		}
		m.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (m *Memory) GetUserByID(_ context.Context, uid string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, err := m.user(uid)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateProfile(_ context.Context, uid string, update models.ProfileUpdate) (*models.User, error) {
	var out *models.User
	err := m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.Username != nil {
			u.Username = *update.Username
		}
		u.UpdatedAt = time.Now()
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (m *Memory) SetPassword(_ context.Context, uid, hash string) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		u.Password = hash
		clearOTP(u)
		u.UpdatedAt = time.Now()
		return nil
	})
}

func clearOTP(u *models.User) {
	u.OTP = ""
	u.OTPExpiresAt = time.Time{}
	u.OTPAttempts = 0
}

func (m *Memory) SetOTP(_ context.Context, uid, otp string, expiresAt time.Time) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		clearOTP(u)
		if otp != "" {
			u.OTP = otp
			u.OTPExpiresAt = expiresAt
		}
		return nil
	})
}

func (m *Memory) RecordOTPFailure(_ context.Context, uid string) (int, error) {
	var attempts int
	err := m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		u.OTPAttempts++
		attempts = u.OTPAttempts
		return nil
	})
	return attempts, err
}

func (m *Memory) SetMeasurements(_ context.Context, uid string, ms models.SelfMeasurement) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		u.Measurements = &ms
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (m *Memory) AddRecord(_ context.Context, uid string, record models.Record) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		if findRecord(u.Records, record.PhoneNumber) >= 0 {
			return ErrDuplicatePhone
		}
		u.Records = append(u.Records, record)
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (m *Memory) ReplaceRecord(_ context.Context, uid, phone string, record models.Record) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		i := findRecord(u.Records, phone)
		if i < 0 {
			return ErrNotFound
		}
		if record.PhoneNumber != phone && findRecord(u.Records, record.PhoneNumber) >= 0 {
			return ErrDuplicatePhone
		}
		u.Records[i] = record
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (m *Memory) RemoveRecord(_ context.Context, uid, phone string) error {
	return m.mutate(func() error {
		u, err := m.user(uid)
		if err != nil {
			return err
		}
		i := findRecord(u.Records, phone)
		if i < 0 {
			return ErrNotFound
		}
		u.Records = slices.Delete(u.Records, i, i+1)
		u.UpdatedAt = time.Now()
		return nil
	})
}

func (m *Memory) CreateOrder(_ context.Context, order *models.Order) error {
	return m.mutate(func() error {
		if order.ID.IsZero() {
			order.ID = primitive.NewObjectID()
		}
		m.orders[order.ID] = cloneOrder(order)
		m.orderSeq = append(m.orderSeq, order.ID)
		return nil
	})
}

func (m *Memory) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	o, ok := m.orders[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *Memory) ListOrders(_ context.Context, q OrderQuery) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, id := range m.orderSeq {
		o, ok := m.orders[id]
		if !ok || o.TailorID != q.TailorID {
			continue
		}
		if q.CustomerPhone != "" && o.UserID != q.CustomerPhone {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *Memory) UpdateOrder(_ context.Context, tailorID, id string, update models.OrderUpdate) (*models.Order, error) {
	var out *models.Order
	err := m.mutate(func() error {
		o, err := m.ownedOrder(tailorID, id)
		if err != nil {
			return err
		}
		o.Title = update.Title
		o.Description = update.Description
		o.FabricType = update.FabricType
		o.Style = update.Style
		o.Price = update.Price
		o.OrderDate = update.OrderDate
		o.DeliveryDate = update.DeliveryDate
		o.UpdatedAt = time.Now()
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (m *Memory) SetOrderStatus(_ context.Context, tailorID, id, status string) (*models.Order, error) {
	var out *models.Order
	err := m.mutate(func() error {
		o, err := m.ownedOrder(tailorID, id)
		if err != nil {
			return err
		}
		o.OrderStatus = status
		o.UpdatedAt = time.Now()
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

func (m *Memory) DeleteOrder(_ context.Context, tailorID, id string) error {
	return m.mutate(func() error {
		o, err := m.ownedOrder(tailorID, id)
		if err != nil {
			return err
		}
		delete(m.orders, o.ID)
		m.orderSeq = slices.DeleteFunc(m.orderSeq, func(oid primitive.ObjectID) bool { return oid == o.ID })
		return nil
	})
}

func (m *Memory) WatchUser(ctx context.Context, uid string) (*Subscription[*models.User], error) {
	return subscribe(ctx, m.newFeed(), func(ctx context.Context) (*models.User, error) {
		return m.GetUserByID(ctx, uid)
	}), nil
}

func (m *Memory) WatchOrders(ctx context.Context, q OrderQuery) (*Subscription[[]models.Order], error) {
	return subscribe(ctx, m.newFeed(), func(ctx context.Context) ([]models.Order, error) {
		return m.ListOrders(ctx, q)
	}), nil
}

func (m *Memory) WatchOrder(ctx context.Context, id string) (*Subscription[OrderSnapshot], error) {
	return subscribe(ctx, m.newFeed(), func(ctx context.Context) (OrderSnapshot, error) {
		return loadOrderSnapshot(ctx, m, id)
	}), nil
}

func loadOrderSnapshot(ctx context.Context, s OrderStore, id string) (OrderSnapshot, error) {
	order, err := s.GetOrder(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return OrderSnapshot{Deleted: true}, nil
	}
	if err != nil {
		return OrderSnapshot{}, err
	}
	return OrderSnapshot{Order: order}, nil
}
