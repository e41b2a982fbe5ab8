package orders

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/listing"
	"github.com/raushankrgupta/tailorme/models"
	"github.com/raushankrgupta/tailorme/stats"
	"github.com/raushankrgupta/tailorme/store"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *store.Memory, string) {
	t.Helper()
	mem := store.NewMemory()
	tailor := &models.User{Name: "Tailor", Email: "t@example.com", Role: models.RoleTailor}
	require.NoError(t, mem.CreateUser(context.Background(), tailor))
	require.NoError(t, mem.AddRecord(context.Background(), tailor.UID(), models.Record{Username: "Ali Raza", PhoneNumber: "0300-1"}))

	svc := NewService(mem, stats.Calculator{ActiveWindow: stats.DefaultActiveWindow}, 5)
	svc.now = func() time.Time { return fixedNow }
	return svc, mem, tailor.UID()
}

func validInput() CreateInput {
	return CreateInput{
		Title:         "Kurta",
		Price:         models.NewPrice("2500"),
		OrderDate:     "2024-06-10",
		DeliveryDate:  "2024-06-20",
		CustomerPhone: "0300-1",
	}
}

func countOrders(t *testing.T, mem *store.Memory, tailorID string) int {
	t.Helper()
	orders, err := mem.ListOrders(context.Background(), store.OrderQuery{TailorID: tailorID})
	require.NoError(t, err)
	return len(orders)
}

func TestCreateOrder(t *testing.T) {
	svc, mem, uid := setup(t)

	order, err := svc.Create(context.Background(), uid, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, order.OrderStatus)
	assert.Equal(t, "Ali Raza", order.Name, "name falls back to the record")
	assert.Equal(t, uid, order.TailorID)
	assert.Equal(t, "2024-06-20", models.FormatDate(order.DeliveryDate))
	assert.Equal(t, 1, countOrders(t, mem, uid))
}

func TestCreateRejectsDeliveryBeforeOrderDate(t *testing.T) {
	svc, mem, uid := setup(t)
	in := validInput()
	in.OrderDate = "2024-06-10"
	in.DeliveryDate = "2024-06-05"

	_, err := svc.Create(context.Background(), uid, in)

	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
	assert.Equal(t, 0, countOrders(t, mem, uid))
}

func TestCreateValidation(t *testing.T) {
	svc, mem, uid := setup(t)

	tests := map[string]func(*CreateInput){
		"blank title":   func(in *CreateInput) { in.Title = "   " },
		"missing price": func(in *CreateInput) { in.Price = models.Price{} },
		"text price":    func(in *CreateInput) { in.Price = models.NewPrice("cheap") },
		"bad date":      func(in *CreateInput) { in.OrderDate = "10/06/2024" },
		"missing phone": func(in *CreateInput) { in.CustomerPhone = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), uid, in)
			assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
		})
	}
	assert.Equal(t, 0, countOrders(t, mem, uid))
}

func TestCreateDefaultsOrderDateToToday(t *testing.T) {
	svc, _, uid := setup(t)
	in := validInput()
	in.OrderDate = ""

	order, err := svc.Create(context.Background(), uid, in)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", models.FormatDate(order.OrderDate))
}

func TestToggleTwiceRestoresOrder(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	id := created.ID.Hex()

	once, err := svc.ToggleStatus(ctx, uid, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, once.OrderStatus)

	twice, err := svc.ToggleStatus(ctx, uid, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, twice.OrderStatus)

	assert.Equal(t, created.Title, twice.Title)
	assert.Equal(t, created.Price, twice.Price)
	assert.Equal(t, created.OrderDate, twice.OrderDate)
	assert.Equal(t, created.DeliveryDate, twice.DeliveryDate)
	assert.Equal(t, created.UserID, twice.UserID)
	assert.Equal(t, created.Name, twice.Name)
}

func TestSetStatus(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)

	order, err := svc.SetStatus(ctx, uid, created.ID.Hex(), models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, order.OrderStatus)

	_, err = svc.SetStatus(ctx, uid, created.ID.Hex(), "Cancelled")
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
}

func TestUpdateIsPartialAndKeepsStatus(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	_, err = svc.ToggleStatus(ctx, uid, created.ID.Hex())
	require.NoError(t, err)

	style := "Slim fit"
	price := models.NewPrice("3000")
	order, err := svc.Update(ctx, uid, created.ID.Hex(), UpdateInput{Style: &style, Price: &price})
	require.NoError(t, err)

	assert.Equal(t, "Slim fit", order.Style)
	assert.Equal(t, "3000", order.Price.Raw())
	assert.Equal(t, "Kurta", order.Title)
	assert.Equal(t, models.StatusCompleted, order.OrderStatus)
}

func TestUpdateValidatesMergedDates(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)

	early := "2024-06-01"
	_, err = svc.Update(ctx, uid, created.ID.Hex(), UpdateInput{DeliveryDate: &early})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))

	order, err := svc.Get(ctx, uid, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-20", models.FormatDate(order.DeliveryDate))
}

func TestDeletedOrderLeavesListing(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	keep, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	gone, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, uid, gone.ID.Hex()))

	list, err := svc.ListForTailor(ctx, uid, listing.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = svc.Get(ctx, uid, gone.ID.Hex())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestOtherTailorsOrdersAreNotFound(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	other := "000000000000000000000001"

	_, err = svc.Get(ctx, other, created.ID.Hex())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	_, err = svc.ToggleStatus(ctx, other, created.ID.Hex())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(svc.Delete(ctx, other, created.ID.Hex())))
	_, err = svc.WatchOne(ctx, other, created.ID.Hex())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestListForCustomerAndDashboard(t *testing.T) {
	svc, _, uid := setup(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	other := validInput()
	other.CustomerPhone = "0333-2"
	other.CustomerName = "Sana"
	_, err = svc.Create(ctx, uid, other)
	require.NoError(t, err)
	_, err = svc.ToggleStatus(ctx, uid, first.ID.Hex())
	require.NoError(t, err)

	mine, err := svc.ListForCustomer(ctx, uid, "0300-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	d, err := svc.Dashboard(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalOrders)
	assert.Equal(t, 1, d.CompletedOrders)
	assert.Equal(t, "2500", d.TotalRevenue.Raw())
	assert.Equal(t, 2, d.ActiveCustomers)
	assert.Equal(t, 1, d.TotalCustomers)
	assert.Len(t, d.Leaderboard, 2)
}

func TestDashboardReportsMissingTailor(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Dashboard(context.Background(), primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
}

func TestWatchDashboardFollowsRecordsAndOrders(t *testing.T) {
	svc, mem, uid := setup(t)
	ctx := context.Background()

	sub, err := svc.WatchDashboard(ctx, uid)
	require.NoError(t, err)
	defer sub.Close()

	waitFor := func(check func(stats.Dashboard) bool) {
		t.Helper()
		assert.Eventually(t, func() bool {
			select {
			case d := <-sub.Updates():
				return check(d)
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
	}

	waitFor(func(d stats.Dashboard) bool { return d.TotalCustomers == 1 && d.TotalOrders == 0 })

	require.NoError(t, mem.AddRecord(ctx, uid, models.Record{Username: "Sana", PhoneNumber: "0333-2"}))
	waitFor(func(d stats.Dashboard) bool { return d.TotalCustomers == 2 })

	_, err = svc.Create(ctx, uid, validInput())
	require.NoError(t, err)
	waitFor(func(d stats.Dashboard) bool { return d.TotalCustomers == 2 && d.TotalOrders == 1 })
}
