package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

type MongoCartRepository struct {
	col *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{col: db.Collection(CartsCollection)}
}

// Create depende del índice único sobre user_id.
func (m *MongoCartRepository) Create(ctx context.Context, c *model.Cart) error {
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrDuplicateCart
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	var c model.Cart
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Cart{}, model.ErrCartNotFound
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("find cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []model.CartLine{}
	}
	return c, nil
}

func (m *MongoCartRepository) Save(ctx context.Context, c *model.Cart) error {
	prev := c.Version
	c.Version++
	if err := replaceVersioned(ctx, m.col, c.ID, prev, c, model.ErrCartNotFound, nil); err != nil {
		c.Version = prev
		return err
	}
	return nil
}

var _ service.CartRepository = (*MongoCartRepository)(nil)
