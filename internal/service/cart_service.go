package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
)

// ProductView es lo que se muestra del producto vivo junto a cada línea.
type ProductView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Price     model.Money `json:"price"`
	Stock     int         `json:"stock"`
	Thumbnail string      `json:"thumbnail"`
}

type CartLineView struct {
	ID       string       `json:"id"`
	Product  *ProductView `json:"product"`
	Quantity int          `json:"quantity"`
	Price    model.Money  `json:"price"`
}

// CartView es el carrito hidratado con datos actuales del catálogo.
type CartView struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	Items         []CartLineView `json:"items"`
	TotalPrice    model.Money    `json:"totalPrice"`
	ItemCount     int            `json:"itemCount"`
	TotalQuantity int            `json:"totalQuantity"`
}

type CartService struct {
	carts   CartRepository
	catalog ProductCatalog
	now     Clock
	log     *log.Entry
}

func NewCartService(d Deps) *CartService {
	return &CartService{
		carts:   d.Carts,
		catalog: d.Catalog,
		now:     d.clock(),
		log:     d.logger("cart"),
	}
}

// GetOrCreate devuelve el carrito del usuario; si no existe lo crea vacío.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (CartView, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return s.hydrate(ctx, cart)
}

// AddItem suma qty a la línea del producto (o la crea). El total resultante se valida contra el stock vivo.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, model.ErrInvalidQuantity
	}

	var cart model.Cart
	err := retryOnConflict(func() error {
		var err error
		cart, err = s.load(ctx, userID)
		if err != nil {
			return err
		}
		product, err := s.catalog.Get(ctx, productID)
		if err != nil {
			return err
		}

		now := s.now()
		if i := cart.LineIndexByProduct(productID); i >= 0 {
			merged := cart.Lines[i].Quantity + qty
			if merged > product.Stock {
				return model.ErrOutOfStock
			}
			cart.Lines[i].Quantity = merged
		} else {
			if qty > product.Stock {
				return model.ErrOutOfStock
			}
			cart.Lines = append(cart.Lines, model.CartLine{
				ID:        uuid.NewString(),
				ProductID: productID,
				Quantity:  qty,
				UnitPrice: product.Price,
				AddedAt:   now,
			})
		}
		cart.UpdatedAt = now
		return s.carts.Save(ctx, &cart)
	})
	if err != nil {
		return CartView{}, err
	}

	s.log.WithFields(log.Fields{"user_id": userID, "product_id": productID, "quantity": qty}).Debug("item added to cart")
	return s.hydrate(ctx, cart)
}

// UpdateLine fija la cantidad de una línea existente.
func (s *CartService) UpdateLine(ctx context.Context, userID, lineID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, model.ErrInvalidQuantity
	}

	var cart model.Cart
	err := retryOnConflict(func() error {
		var err error
		cart, err = s.load(ctx, userID)
		if err != nil {
			return err
		}
		i := cart.LineIndex(lineID)
		if i < 0 {
			return model.ErrLineNotFound
		}
		product, err := s.catalog.Get(ctx, cart.Lines[i].ProductID)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return model.ErrOutOfStock
		}
		cart.Lines[i].Quantity = qty
		cart.UpdatedAt = s.now()
		return s.carts.Save(ctx, &cart)
	})
	if err != nil {
		return CartView{}, err
	}
	return s.hydrate(ctx, cart)
}

// RemoveLine es idempotente: una línea inexistente no es error.
func (s *CartService) RemoveLine(ctx context.Context, userID, lineID string) (CartView, error) {
	var cart model.Cart
	err := retryOnConflict(func() error {
		var err error
		cart, err = s.load(ctx, userID)
		if err != nil {
			return err
		}
		i := cart.LineIndex(lineID)
		if i < 0 {
			return nil
		}
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		cart.UpdatedAt = s.now()
		return s.carts.Save(ctx, &cart)
	})
	if err != nil {
		return CartView{}, err
	}
	return s.hydrate(ctx, cart)
}

// Clear vacía las líneas; el carrito sigue existiendo.
func (s *CartService) Clear(ctx context.Context, userID string) (CartView, error) {
	var cart model.Cart
	err := retryOnConflict(func() error {
		var err error
		cart, err = s.load(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return nil
		}
		cart.Lines = []model.CartLine{}
		cart.UpdatedAt = s.now()
		return s.carts.Save(ctx, &cart)
	})
	if err != nil {
		return CartView{}, err
	}
	return s.hydrate(ctx, cart)
}

// Snapshot devuelve el carrito crudo (precios congelados) para el checkout.
func (s *CartService) Snapshot(ctx context.Context, userID string) (model.Cart, error) {
	return s.load(ctx, userID)
}

func (s *CartService) load(ctx context.Context, userID string) (model.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, model.ErrCartNotFound) {
		return model.Cart{}, fmt.Errorf("find cart: %w", err)
	}

	now := s.now()
	cart = model.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Lines:     []model.CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.carts.Create(ctx, &cart)
	if errors.Is(err, model.ErrDuplicateCart) {
		// otro request lo creó primero
		return s.carts.FindByUserID(ctx, userID)
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) hydrate(ctx context.Context, cart model.Cart) (CartView, error) {
	ids := make([]string, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return CartView{}, fmt.Errorf("load cart products: %w", err)
	}

	view := CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      make([]CartLineView, 0, len(cart.Lines)),
		TotalPrice: cart.TotalPrice(),
		ItemCount:  len(cart.Lines),
	}
	for _, l := range cart.Lines {
		line := CartLineView{ID: l.ID, Quantity: l.Quantity, Price: l.UnitPrice}
		// un producto borrado del catálogo se muestra como null
		if p, ok := products[l.ProductID]; ok {
			line.Product = &ProductView{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock, Thumbnail: p.Thumbnail}
		}
		view.Items = append(view.Items, line)
		view.TotalQuantity += l.Quantity
	}
	return view, nil
}
