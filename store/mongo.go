package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raushankrgupta/tailorme/models"
)

const (
	usersCollection  = "users"
	ordersCollection = "orders"
)

// Mongo is the Store backed by a MongoDB database. Records live as an array
// inside the tailor's user document and are changed element by element.
type Mongo struct {
	users  *mongo.Collection
	orders *mongo.Collection
}

var _ Store = (*Mongo)(nil)

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users:  db.Collection(usersCollection),
		orders: db.Collection(ordersCollection),
	}
}

// EnsureIndexes creates the unique email index and the order lookup index.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	_, err = m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tailor_id", Value: 1}, {Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create orders index: %w", err)
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *Mongo) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	oid, err := objectID(uid)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (m *Mongo) UpdateProfile(ctx context.Context, uid string, update models.ProfileUpdate) (*models.User, error) {
	oid, err := objectID(uid)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// updateUser applies update to one user and reports ErrNotFound when no
// document matched.
func (m *Mongo) updateUser(ctx context.Context, uid string, update bson.M) error {
	oid, err := objectID(uid)
	if err != nil {
		return err
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var unsetOTP = bson.M{"otp": "", "otp_expires_at": "", "otp_attempts": ""}

func (m *Mongo) SetPassword(ctx context.Context, uid, hash string) error {
	return m.updateUser(ctx, uid, bson.M{
		"$set":   bson.M{"password": hash, "updated_at": time.Now()},
		"$unset": unsetOTP,
	})
}

func (m *Mongo) SetOTP(ctx context.Context, uid, otp string, expiresAt time.Time) error {
	if otp == "" {
		return m.updateUser(ctx, uid, bson.M{"$unset": unsetOTP})
	}
	return m.updateUser(ctx, uid, bson.M{
		"$set":   bson.M{"otp": otp, "otp_expires_at": expiresAt},
		"$unset": bson.M{"otp_attempts": ""},
	})
}

// RecordOTPFailure increments the failed attempt counter atomically so
// parallel guesses are all counted.
func (m *Mongo) RecordOTPFailure(ctx context.Context, uid string) (int, error) {
	oid, err := objectID(uid)
	if err != nil {
		return 0, err
	}
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = m.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"otp_attempts": 1}}, opts).Decode(&user)
	if err != nil {
		return 0, notFound(err)
	}
	return user.OTPAttempts, nil
}

func (m *Mongo) SetMeasurements(ctx context.Context, uid string, ms models.SelfMeasurement) error {
	return m.updateUser(ctx, uid, bson.M{"$set": bson.M{"measurements": ms, "updated_at": time.Now()}})
}

// AddRecord pushes the record only when no element carries the same phone
// number, so concurrent writers from several devices cannot both succeed.
func (m *Mongo) AddRecord(ctx context.Context, uid string, record models.Record) error {
	oid, err := objectID(uid)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "records.phone_number": bson.M{"$ne": record.PhoneNumber}}
	update := bson.M{
		"$push": bson.M{"records": record},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := m.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := m.GetUserByID(ctx, uid); err != nil {
			return err
		}
		return ErrDuplicatePhone
	}
	return nil
}

func (m *Mongo) ReplaceRecord(ctx context.Context, uid, phone string, record models.Record) error {
	oid, err := objectID(uid)
	if err != nil {
		return err
	}
	conds := bson.A{
		bson.M{"_id": oid},
		bson.M{"records.phone_number": phone},
	}
	if record.PhoneNumber != phone {
		conds = append(conds, bson.M{"records.phone_number": bson.M{"$ne": record.PhoneNumber}})
	}
	update := bson.M{"$set": bson.M{"records.$[r]": record, "updated_at": time.Now()}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"r.phone_number": phone}},
	})

	res, err := m.users.UpdateOne(ctx, bson.M{"$and": conds}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	user, err := m.GetUserByID(ctx, uid)
	if err != nil {
		return err
	}
	if findRecord(user.Records, phone) < 0 {
		return ErrNotFound
	}
	return ErrDuplicatePhone
}

func (m *Mongo) RemoveRecord(ctx context.Context, uid, phone string) error {
	oid, err := objectID(uid)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": oid, "records.phone_number": phone}
	update := bson.M{
		"$pull": bson.M{"records": bson.M{"phone_number": phone}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := m.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := m.orders.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *Mongo) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := m.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (m *Mongo) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	filter := bson.M{"tailor_id": q.TailorID}
	if q.CustomerPhone != "" {
		filter["user_id"] = q.CustomerPhone
	}
	cursor, err := m.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *Mongo) updateOrder(ctx context.Context, tailorID, id string, set bson.M) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now()

	var order models.Order
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = m.orders.FindOneAndUpdate(ctx, bson.M{"_id": oid, "tailor_id": tailorID}, bson.M{"$set": set}, opts).Decode(&order)
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (m *Mongo) UpdateOrder(ctx context.Context, tailorID, id string, update models.OrderUpdate) (*models.Order, error) {
	return m.updateOrder(ctx, tailorID, id, bson.M{
		"title":         update.Title,
		"description":   update.Description,
		"fabric_type":   update.FabricType,
		"style":         update.Style,
		"price":         update.Price,
		"order_date":    update.OrderDate,
		"delivery_date": update.DeliveryDate,
	})
}

func (m *Mongo) SetOrderStatus(ctx context.Context, tailorID, id, status string) (*models.Order, error) {
	return m.updateOrder(ctx, tailorID, id, bson.M{"order_status": status})
}

func (m *Mongo) DeleteOrder(ctx context.Context, tailorID, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := m.orders.DeleteOne(ctx, bson.M{"_id": oid, "tailor_id": tailorID})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// WatchUser follows one user document through a change stream.
func (m *Mongo) WatchUser(ctx context.Context, uid string) (*Subscription[*models.User], error) {
	oid, err := objectID(uid)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: oid}}}}}
	cs, err := m.users.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to watch user: %w", err)
	}
	return subscribe(ctx, cs, func(ctx context.Context) (*models.User, error) {
		return m.GetUserByID(ctx, uid)
	}), nil
}

// ordersChangeMatch selects the change events that can alter the orders of
// q's tailor. Delete events carry no document, so every delete passes.
func ordersChangeMatch(q OrderQuery) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "fullDocument.tailor_id", Value: q.TailorID}},
		bson.D{{Key: "operationType", Value: "delete"}},
	}}}
}

// WatchOrders reloads the tailor's orders after any change to them.
func (m *Mongo) WatchOrders(ctx context.Context, q OrderQuery) (*Subscription[[]models.Order], error) {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: ordersChangeMatch(q)}}}
	cs, err := m.orders.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to watch orders: %w", err)
	}
	return subscribe(ctx, cs, func(ctx context.Context) ([]models.Order, error) {
		return m.ListOrders(ctx, q)
	}), nil
}

func (m *Mongo) WatchOrder(ctx context.Context, id string) (*Subscription[OrderSnapshot], error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: oid}}}}}
	cs, err := m.orders.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to watch order: %w", err)
	}
	return subscribe(ctx, cs, func(ctx context.Context) (OrderSnapshot, error) {
		return loadOrderSnapshot(ctx, m, id)
	}), nil
}
