package repository

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront-fulfillment-service/internal/service"
)

// MongoTxManager corre fn dentro de una transacción de sesión (requiere replica set).
// Con transacciones deshabilitadas fn corre sin transacción.
type MongoTxManager struct {
	client  *mongo.Client
	enabled bool
}

func NewMongoTxManager(client *mongo.Client, enabled bool, logger *log.Entry) *MongoTxManager {
	if !enabled && logger != nil {
		logger.Warn("mongo transactions disabled: cross-document updates are not atomic")
	}
	return &MongoTxManager{client: client, enabled: enabled}
}

func (m *MongoTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping existe para el health check.
func (m *MongoTxManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes crea los índices únicos que sostienen las reglas de uno-por-orden.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CartsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "transaction_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"transaction_id": bson.M{"$type": "string"}}),
			},
		},
		DeliveriesCollection: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "tracking_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Repositories agrupa las implementaciones Mongo de todos los puertos.
type Repositories struct {
	Tx         *MongoTxManager
	Products   *MongoProductRepository
	Carts      *MongoCartRepository
	Orders     *MongoOrderRepository
	Payments   *MongoPaymentRepository
	Deliveries *MongoDeliveryRepository
}

func NewRepositories(client *mongo.Client, db *mongo.Database, transactions bool, logger *log.Entry) *Repositories {
	return &Repositories{
		Tx:         NewMongoTxManager(client, transactions, logger),
		Products:   NewMongoProductRepository(db),
		Carts:      NewMongoCartRepository(db),
		Orders:     NewMongoOrderRepository(db),
		Payments:   NewMongoPaymentRepository(db),
		Deliveries: NewMongoDeliveryRepository(db),
	}
}

var _ service.TxManager = (*MongoTxManager)(nil)
