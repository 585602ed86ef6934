package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"storefront-fulfillment-service/internal/model"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func duplicateKey(index string) bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.coll index: " + index,
	})
}

func TestReserveStock(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("decrements when enough stock", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(updated(1))
		require.NoError(mt, repo.ReserveStock(ctx, "p1", 2))
	})

	mt.Run("out of stock when product exists", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "p1"},
				{Key: "stock", Value: 1},
			}),
		)
		assert.ErrorIs(mt, repo.ReserveStock(ctx, "p1", 2), model.ErrOutOfStock)
	})

	mt.Run("not found when product is missing", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, "test.products", mtest.FirstBatch),
		)
		assert.ErrorIs(mt, repo.ReserveStock(ctx, "p1", 2), model.ErrProductNotFound)
	})
}

func TestPaymentCreateMapsDuplicateKeys(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("order_id", func(mt *mtest.T) {
		repo := NewMongoPaymentRepository(mt.DB)
		mt.AddMockResponses(duplicateKey("order_id_1"))
		err := repo.Create(ctx, &model.Payment{ID: "pay2", OrderID: "o1"})
		assert.ErrorIs(mt, err, model.ErrDuplicatePayment)
	})

	mt.Run("transaction_id", func(mt *mtest.T) {
		repo := NewMongoPaymentRepository(mt.DB)
		mt.AddMockResponses(duplicateKey("transaction_id_1"))
		err := repo.Create(ctx, &model.Payment{ID: "pay2", OrderID: "o2", TransactionID: "TXN1"})
		assert.ErrorIs(mt, err, model.ErrDuplicateTxn)
	})
}

func TestDeliveryCreateMapsDuplicateKeys(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("tracking_number", func(mt *mtest.T) {
		repo := NewMongoDeliveryRepository(mt.DB)
		mt.AddMockResponses(duplicateKey("tracking_number_1"))
		err := repo.Create(ctx, &model.Delivery{ID: "d1", OrderID: "o1", TrackingNumber: "TRK1"})
		assert.ErrorIs(mt, err, model.ErrDuplicateTracking)
	})

	mt.Run("order_id", func(mt *mtest.T) {
		repo := NewMongoDeliveryRepository(mt.DB)
		mt.AddMockResponses(duplicateKey("order_id_1"))
		err := repo.Create(ctx, &model.Delivery{ID: "d1", OrderID: "o1", TrackingNumber: "TRK1"})
		assert.ErrorIs(mt, err, model.ErrDuplicateDelivery)
	})
}

func TestSaveVersioned(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("bumps version on match", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(updated(1))
		c := &model.Cart{ID: "c1", UserID: "u1", Version: 3}
		require.NoError(mt, repo.Save(ctx, c))
		assert.Equal(mt, int64(4), c.Version)
	})

	mt.Run("conflict keeps version", func(mt *mtest.T) {
		repo := NewMongoCartRepository(mt.DB)
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, "test.carts", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		c := &model.Cart{ID: "c1", UserID: "u1", Version: 3}
		assert.ErrorIs(mt, repo.Save(ctx, c), model.ErrVersionConflict)
		assert.Equal(mt, int64(3), c.Version)
	})

	mt.Run("missing document", func(mt *mtest.T) {
		repo := NewMongoOrderRepository(mt.DB)
		mt.AddMockResponses(
			updated(0),
			mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch),
		)
		o := &model.Order{ID: "o1"}
		assert.ErrorIs(mt, repo.Save(ctx, o), model.ErrOrderNotFound)
	})
}

func TestFindByUserIDDecodesOrders(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("decodes", func(mt *mtest.T) {
		repo := NewMongoOrderRepository(mt.DB)
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "o1"},
				{Key: "user_id", Value: "u1"},
				{Key: "total_price", Value: int64(5399)},
				{Key: "order_status", Value: "Pending"},
				{Key: "created_at", Value: created},
			},
		))
		orders, err := repo.FindByUserID(ctx, "u1")
		require.NoError(mt, err)
		require.Len(mt, orders, 1)
		assert.Equal(mt, model.Money(5399), orders[0].TotalPrice)
		assert.Equal(mt, model.OrderPending, orders[0].OrderStatus)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch))
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(mt, err, model.ErrOrderNotFound)
	})
}
