package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

type MongoDeliveryRepository struct {
	col *mongo.Collection
}

func NewMongoDeliveryRepository(db *mongo.Database) *MongoDeliveryRepository {
	return &MongoDeliveryRepository{col: db.Collection(DeliveriesCollection)}
}

// Create distingue cuál de los dos índices únicos se violó.
func (m *MongoDeliveryRepository) Create(ctx context.Context, d *model.Delivery) error {
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "tracking_number") {
				return model.ErrDuplicateTracking
			}
			return model.ErrDuplicateDelivery
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (m *MongoDeliveryRepository) Get(ctx context.Context, id string) (model.Delivery, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoDeliveryRepository) FindByOrderID(ctx context.Context, orderID string) (model.Delivery, error) {
	return m.findOne(ctx, bson.M{"order_id": orderID})
}

func (m *MongoDeliveryRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (model.Delivery, error) {
	return m.findOne(ctx, bson.M{"tracking_number": trackingNumber})
}

func (m *MongoDeliveryRepository) Save(ctx context.Context, d *model.Delivery) error {
	prev := d.Version
	d.Version++
	if err := replaceVersioned(ctx, m.col, d.ID, prev, d, model.ErrDeliveryNotFound, model.ErrDuplicateTracking); err != nil {
		d.Version = prev
		return err
	}
	return nil
}

func (m *MongoDeliveryRepository) List(ctx context.Context) ([]model.Delivery, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return decodeAll[model.Delivery](ctx, cur)
}

func (m *MongoDeliveryRepository) findOne(ctx context.Context, filter bson.M) (model.Delivery, error) {
	var d model.Delivery
	err := m.col.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Delivery{}, model.ErrDeliveryNotFound
	}
	if err != nil {
		return model.Delivery{}, fmt.Errorf("find delivery: %w", err)
	}
	return d, nil
}

var _ service.DeliveryRepository = (*MongoDeliveryRepository)(nil)
