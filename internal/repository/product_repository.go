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

// MongoProductRepository lee la colección del catálogo y descuenta stock.
type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection(ProductsCollection)}
}

func (m *MongoProductRepository) Get(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Product{}, model.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

func (m *MongoProductRepository) GetMany(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := m.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	products, err := decodeAll[model.Product](ctx, cur)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ReserveStock es un único update condicionado a stock >= qty.
func (m *MongoProductRepository) ReserveStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	return model.ErrOutOfStock
}

func (m *MongoProductRepository) ReleaseStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": qty}})
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

var _ service.ProductCatalog = (*MongoProductRepository)(nil)
