package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

// Nombres de colecciones
const (
	ProductsCollection   = "products"
	CartsCollection      = "carts"
	OrdersCollection     = "orders"
	PaymentsCollection   = "payments"
	DeliveriesCollection = "deliveries"
)

// newestFirst ordena listados por fecha de creación descendente, con _id como desempate.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection(OrdersCollection)}
}

func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	if _, err := m.col.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) Get(ctx context.Context, id string) (model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Order{}, model.ErrOrderNotFound
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	return res, nil
}

func (m *MongoOrderRepository) Save(ctx context.Context, o *model.Order) error {
	prev := o.Version
	o.Version++
	if err := replaceVersioned(ctx, m.col, o.ID, prev, o, model.ErrOrderNotFound, nil); err != nil {
		o.Version = prev
		return err
	}
	return nil
}

func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	cur, err := m.col.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find orders by user: %w", err)
	}
	return decodeAll[model.Order](ctx, cur)
}

func (m *MongoOrderRepository) List(ctx context.Context, skip, limit int) ([]model.Order, int, error) {
	total, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	opts := options.Find().SetSort(newestFirst).SetSkip(int64(skip))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out, err := decodeAll[model.Order](ctx, cur)
	return out, int(total), err
}

// replaceVersioned reemplaza el documento solo si la versión guardada sigue siendo prev.
// doc ya debe llevar la versión nueva.
func replaceVersioned(ctx context.Context, col *mongo.Collection, id string, prev int64, doc any, notFound, duplicate error) error {
	res, err := col.ReplaceOne(ctx, bson.M{"_id": id, "version": prev}, doc)
	if err != nil {
		if duplicate != nil && mongo.IsDuplicateKeyError(err) {
			return duplicate
		}
		return fmt.Errorf("replace %s: %w", col.Name(), err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count %s: %w", col.Name(), err)
	}
	if n == 0 {
		return notFound
	}
	return model.ErrVersionConflict
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)

	out := make([]T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

var _ service.OrderRepository = (*MongoOrderRepository)(nil)
