package memory

import (
	"context"
	"sort"

	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

// ProductRepository simula el catálogo externo.
type ProductRepository struct {
	s *Store
}

// Put carga o reemplaza un producto (seed y tests).
func (r *ProductRepository) Put(p model.Product) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = p
}

func (r *ProductRepository) Get(ctx context.Context, id string) (model.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, model.ErrProductNotFound
	}
	return p, nil
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]model.Product, error) {
	defer r.s.lock(ctx)()
	out := make(map[string]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ReserveStock descuenta solo si alcanza el stock, bajo el mismo lock que la lectura.
func (r *ProductRepository) ReserveStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return model.ErrProductNotFound
	}
	if p.Stock < qty {
		return model.ErrOutOfStock
	}
	p.Stock -= qty
	r.s.products[id] = p
	return nil
}

func (r *ProductRepository) ReleaseStock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return model.ErrProductNotFound
	}
	p.Stock += qty
	r.s.products[id] = p
	return nil
}

type CartRepository struct {
	s *Store
}

func (r *CartRepository) Create(ctx context.Context, c *model.Cart) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.cartByUser[c.UserID]; exists {
		return model.ErrDuplicateCart
	}
	r.s.carts[c.ID] = cloneCart(*c)
	r.s.cartByUser[c.UserID] = c.ID
	return nil
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID string) (model.Cart, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.cartByUser[userID]
	if !ok {
		return model.Cart{}, model.ErrCartNotFound
	}
	return cloneCart(r.s.carts[id]), nil
}

func (r *CartRepository) Save(ctx context.Context, c *model.Cart) error {
	defer r.s.lock(ctx)()
	current, ok := r.s.carts[c.ID]
	if !ok {
		return model.ErrCartNotFound
	}
	if current.Version != c.Version {
		return model.ErrVersionConflict
	}
	c.Version++
	r.s.carts[c.ID] = cloneCart(*c)
	return nil
}

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.orders[o.ID]; exists {
		return model.ErrVersionConflict
	}
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (model.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.orders[id]
	if !ok {
		return model.Order{}, model.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) Save(ctx context.Context, o *model.Order) error {
	defer r.s.lock(ctx)()
	current, ok := r.s.orders[o.ID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return model.ErrVersionConflict
	}
	o.Version++
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) FindByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	defer r.s.lock(ctx)()
	out := make([]model.Order, 0)
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sortOrders(out)
	return out, nil
}

func (r *OrderRepository) List(ctx context.Context, skip, limit int) ([]model.Order, int, error) {
	defer r.s.lock(ctx)()
	all := make([]model.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		all = append(all, cloneOrder(o))
	}
	sortOrders(all)
	total := len(all)
	if skip < 0 {
		skip = 0
	}
	if skip >= total {
		return []model.Order{}, total, nil
	}
	all = all[skip:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// más recientes primero
func sortOrders(out []model.Order) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

type PaymentRepository struct {
	s *Store
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.paymentByOrder[p.OrderID]; exists {
		return model.ErrDuplicatePayment
	}
	if p.TransactionID != "" {
		if _, exists := r.s.paymentByTxn[p.TransactionID]; exists {
			return model.ErrDuplicateTxn
		}
		r.s.paymentByTxn[p.TransactionID] = p.ID
	}
	r.s.payments[p.ID] = clonePayment(*p)
	r.s.paymentByOrder[p.OrderID] = p.ID
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (model.Payment, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.payments[id]
	if !ok {
		return model.Payment{}, model.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.paymentByOrder[orderID]
	if !ok {
		return model.Payment{}, model.ErrPaymentNotFound
	}
	return clonePayment(r.s.payments[id]), nil
}

func (r *PaymentRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) ([]model.Payment, error) {
	defer r.s.lock(ctx)()
	out := make([]model.Payment, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		if id, ok := r.s.paymentByOrder[orderID]; ok {
			out = append(out, clonePayment(r.s.payments[id]))
		}
	}
	sortPayments(out)
	return out, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *model.Payment) error {
	defer r.s.lock(ctx)()
	current, ok := r.s.payments[p.ID]
	if !ok {
		return model.ErrPaymentNotFound
	}
	if current.Version != p.Version {
		return model.ErrVersionConflict
	}
	if p.TransactionID != "" && p.TransactionID != current.TransactionID {
		if owner, exists := r.s.paymentByTxn[p.TransactionID]; exists && owner != p.ID {
			return model.ErrDuplicateTxn
		}
		r.s.paymentByTxn[p.TransactionID] = p.ID
	}
	p.Version++
	r.s.payments[p.ID] = clonePayment(*p)
	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]model.Payment, error) {
	defer r.s.lock(ctx)()
	out := make([]model.Payment, 0, len(r.s.payments))
	for _, p := range r.s.payments {
		out = append(out, clonePayment(p))
	}
	sortPayments(out)
	return out, nil
}

func sortPayments(out []model.Payment) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

type DeliveryRepository struct {
	s *Store
}

func (r *DeliveryRepository) Create(ctx context.Context, d *model.Delivery) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.deliveryByOrder[d.OrderID]; exists {
		return model.ErrDuplicateDelivery
	}
	if _, exists := r.s.deliveryByTracking[d.TrackingNumber]; exists {
		return model.ErrDuplicateTracking
	}
	r.s.deliveries[d.ID] = *d
	r.s.deliveryByOrder[d.OrderID] = d.ID
	r.s.deliveryByTracking[d.TrackingNumber] = d.ID
	return nil
}

func (r *DeliveryRepository) Get(ctx context.Context, id string) (model.Delivery, error) {
	defer r.s.lock(ctx)()
	d, ok := r.s.deliveries[id]
	if !ok {
		return model.Delivery{}, model.ErrDeliveryNotFound
	}
	return d, nil
}

func (r *DeliveryRepository) FindByOrderID(ctx context.Context, orderID string) (model.Delivery, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.deliveryByOrder[orderID]
	if !ok {
		return model.Delivery{}, model.ErrDeliveryNotFound
	}
	return r.s.deliveries[id], nil
}

func (r *DeliveryRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (model.Delivery, error) {
	defer r.s.lock(ctx)()
	id, ok := r.s.deliveryByTracking[trackingNumber]
	if !ok {
		return model.Delivery{}, model.ErrDeliveryNotFound
	}
	return r.s.deliveries[id], nil
}

// Save no toca tracking_number: es inmutable una vez asignado.
func (r *DeliveryRepository) Save(ctx context.Context, d *model.Delivery) error {
	defer r.s.lock(ctx)()
	current, ok := r.s.deliveries[d.ID]
	if !ok {
		return model.ErrDeliveryNotFound
	}
	if current.Version != d.Version {
		return model.ErrVersionConflict
	}
	d.TrackingNumber = current.TrackingNumber
	d.Version++
	r.s.deliveries[d.ID] = *d
	return nil
}

func (r *DeliveryRepository) List(ctx context.Context) ([]model.Delivery, error) {
	defer r.s.lock(ctx)()
	out := make([]model.Delivery, 0, len(r.s.deliveries))
	for _, d := range r.s.deliveries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

var (
	_ service.ProductCatalog     = (*ProductRepository)(nil)
	_ service.CartRepository     = (*CartRepository)(nil)
	_ service.OrderRepository    = (*OrderRepository)(nil)
	_ service.PaymentRepository  = (*PaymentRepository)(nil)
	_ service.DeliveryRepository = (*DeliveryRepository)(nil)
)
