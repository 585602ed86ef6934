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

type MongoPaymentRepository struct {
	col *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{col: db.Collection(PaymentsCollection)}
}

// Create: el índice único sobre order_id resuelve las carreras entre requests.
func (m *MongoPaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	if _, err := m.col.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "transaction_id") {
				return model.ErrDuplicateTxn
			}
			return model.ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (m *MongoPaymentRepository) Get(ctx context.Context, id string) (model.Payment, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	return m.findOne(ctx, bson.M{"order_id": orderID})
}

func (m *MongoPaymentRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) ([]model.Payment, error) {
	cur, err := m.col.Find(ctx, bson.M{"order_id": bson.M{"$in": orderIDs}}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find payments by orders: %w", err)
	}
	return decodeAll[model.Payment](ctx, cur)
}

func (m *MongoPaymentRepository) Save(ctx context.Context, p *model.Payment) error {
	prev := p.Version
	p.Version++
	if err := replaceVersioned(ctx, m.col, p.ID, prev, p, model.ErrPaymentNotFound, model.ErrDuplicateTxn); err != nil {
		p.Version = prev
		return err
	}
	return nil
}

func (m *MongoPaymentRepository) List(ctx context.Context) ([]model.Payment, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return decodeAll[model.Payment](ctx, cur)
}

func (m *MongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (model.Payment, error) {
	var p model.Payment
	err := m.col.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Payment{}, model.ErrPaymentNotFound
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

var _ service.PaymentRepository = (*MongoPaymentRepository)(nil)
