package memory

import (
	"encoding/json"
	"fmt"
	"io"

	"storefront-fulfillment-service/internal/model"
)

// SeedProducts carga un arreglo JSON de productos en el catálogo en memoria.
func (s *Store) SeedProducts(r io.Reader) (int, error) {
	var products []model.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return 0, fmt.Errorf("decode products: %w", err)
	}
	repo := s.Products()
	for i, p := range products {
		if p.ID == "" || p.Stock < 0 {
			return 0, fmt.Errorf("product %d: id is required and stock must not be negative", i)
		}
		repo.Put(p)
	}
	return len(products), nil
}
