package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/metrics"
	"storefront-fulfillment-service/internal/model"
)

type CreatePaymentInput struct {
	OrderID       string
	Amount        model.Money
	PaymentMethod string
	CardDetails   *model.CardDetails
}

type PaymentService struct {
	tx       TxManager
	payments PaymentRepository
	orders   OrderRepository
	gateway  PaymentGateway
	coord    *coordinator
	notifier Notifier
	metrics  *metrics.Metrics
	now      Clock
	log      *log.Entry
}

func NewPaymentService(d Deps) *PaymentService {
	gw := d.Gateway
	if gw == nil {
		gw = MockGateway{}
	}
	return &PaymentService{
		tx:       d.Tx,
		payments: d.Payments,
		orders:   d.Orders,
		gateway:  gw,
		coord:    newCoordinator(d),
		notifier: d.notifier(),
		metrics:  d.Metrics,
		now:      d.clock(),
		log:      d.logger("payment"),
	}
}

// CreatePayment registra el pago Pending de una orden. El índice único sobre order_id
// garantiza un solo pago por orden aun con requests concurrentes.
func (s *PaymentService) CreatePayment(ctx context.Context, who model.Principal, in CreatePaymentInput) (model.Payment, error) {
	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return model.Payment{}, err
	}
	if !who.CanAccess(order.UserID) {
		return model.Payment{}, model.ErrForbidden
	}
	if order.OrderStatus == model.OrderCancelled {
		return model.Payment{}, model.ErrOrderCancelled
	}
	if in.Amount != order.TotalPrice {
		return model.Payment{}, model.ErrAmountMismatch
	}

	method := in.PaymentMethod
	if method == "" {
		method = model.DefaultPaymentMethod
	}
	if !model.ValidPaymentMethod(method) {
		return model.Payment{}, model.ErrInvalidPayment
	}
	if err := in.CardDetails.Validate(); err != nil {
		return model.Payment{}, err
	}

	now := s.now()
	p := model.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Amount:        in.Amount,
		PaymentMethod: method,
		Status:        model.PaymentPending,
		CardDetails:   in.CardDetails,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, &p); err != nil {
		return model.Payment{}, err
	}

	s.log.WithFields(log.Fields{"payment_id": p.ID, "order_id": order.ID, "user_id": who.ID}).Info("payment created")
	return p, nil
}

// processingLease es cuánto dura el claim de un pago en Processing antes de poder retomarse.
const processingLease = 2 * time.Minute

// ProcessPayment reclama el pago (Pending -> Processing), cobra fuera de la transacción
// y después guarda Completed y marca la orden pagada en una sola transacción.
// Si el cobro ya quedó registrado en un intento anterior, reutiliza ese transactionId.
func (s *PaymentService) ProcessPayment(ctx context.Context, who model.Principal, id string) (model.Payment, error) {
	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return model.Payment{}, err
	}
	order, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return model.Payment{}, err
	}
	if !who.CanAccess(order.UserID) {
		return model.Payment{}, model.ErrForbidden
	}
	if order.OrderStatus == model.OrderCancelled {
		return model.Payment{}, model.ErrOrderCancelled
	}

	if err := s.claim(ctx, who, &p); err != nil {
		return model.Payment{}, err
	}

	entry := s.log.WithFields(log.Fields{"payment_id": p.ID, "order_id": p.OrderID})
	txnID := p.TransactionID
	if txnID != "" {
		entry.WithField("transaction_id", txnID).Warn("resuming charged payment")
	} else {
		var chargeErr error
		txnID, chargeErr = s.gateway.Charge(ctx, p)
		if chargeErr != nil {
			if err := s.fail(ctx, &p); err != nil {
				entry.WithError(err).Error("could not mark payment as failed")
			}
			s.metrics.Payment("failed")
			if errors.Is(chargeErr, model.ErrPaymentDeclined) {
				entry.Info("payment declined")
				return model.Payment{}, model.ErrPaymentDeclined
			}
			entry.WithError(chargeErr).Error("payment gateway error")
			return model.Payment{}, fmt.Errorf("charge payment: %w", chargeErr)
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		p.TransactionID = txnID
		if err := p.TransitionTo(model.PaymentCompleted, now); err != nil {
			return err
		}
		p.PaymentDate = &now
		if err := s.payments.Save(ctx, &p); err != nil {
			return fmt.Errorf("save completed payment: %w", err)
		}
		order, err = s.coord.markPaid(ctx, p.OrderID, &p)
		return err
	})
	if err != nil {
		// cobrado pero sin registrar: queda en Processing con el transactionId para retomarlo
		entry.WithField("transaction_id", txnID).WithError(err).Error("charged payment could not be recorded")
		if rerr := s.recordCharge(ctx, p.ID, txnID); rerr != nil {
			entry.WithField("transaction_id", txnID).WithError(rerr).Error("could not record transaction id")
		}
		return model.Payment{}, err
	}

	s.metrics.Payment("completed")
	entry.WithField("transaction_id", txnID).Info("payment completed")
	notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(model.EventOrderPaid, &order, *p.PaymentDate))
	return p, nil
}

// claim pasa el pago a Processing con optimistic locking; solo un request gana.
// Un Processing se retoma si el claim venció o si lo pide un admin, nunca tras perder una carrera.
func (s *PaymentService) claim(ctx context.Context, who model.Principal, p *model.Payment) error {
	for attempt := 0; ; attempt++ {
		now := s.now()
		switch p.Status {
		case model.PaymentCompleted, model.PaymentRefunded:
			return model.ErrAlreadyProcessed
		case model.PaymentFailed:
			return model.ErrInvalidTransition
		case model.PaymentProcessing:
			if attempt > 0 || (!who.IsAdmin() && now.Sub(p.UpdatedAt) < processingLease) {
				return model.ErrPaymentInProgress
			}
			p.UpdatedAt = now
		default:
			if err := p.TransitionTo(model.PaymentProcessing, now); err != nil {
				return err
			}
		}
		err := s.payments.Save(ctx, p)
		if !errors.Is(err, model.ErrVersionConflict) || attempt >= maxVersionRetries {
			return err
		}
		fresh, err := s.payments.Get(ctx, p.ID)
		if err != nil {
			return err
		}
		*p = fresh
	}
}

// recordCharge guarda el transactionId sobre el pago en Processing.
func (s *PaymentService) recordCharge(ctx context.Context, id, txnID string) error {
	return retryOnConflict(func() error {
		p, err := s.payments.Get(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentProcessing {
			return model.ErrInvalidTransition
		}
		p.TransactionID = txnID
		return s.payments.Save(ctx, &p)
	})
}

func (s *PaymentService) fail(ctx context.Context, p *model.Payment) error {
	if err := p.TransitionTo(model.PaymentFailed, s.now()); err != nil {
		return err
	}
	return s.payments.Save(ctx, p)
}

// Refund devuelve el pago (amount 0 = total) y cancela la orden en la misma transacción.
func (s *PaymentService) Refund(ctx context.Context, who model.Principal, id string, amount model.Money, reason string) (model.Payment, error) {
	if !who.IsAdmin() {
		return model.Payment{}, model.ErrForbidden
	}

	var (
		p         model.Payment
		order     model.Order
		cancelled bool
	)
	err := retryOnConflict(func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			p, err = s.payments.Get(ctx, id)
			if err != nil {
				return err
			}
			if p.Status != model.PaymentCompleted {
				return model.ErrNotCompleted
			}
			if amount > p.Amount {
				return model.ErrRefundExceedsAmount
			}
			refund := amount
			if refund == 0 {
				refund = p.Amount
			}

			now := s.now()
			if err := p.TransitionTo(model.PaymentRefunded, now); err != nil {
				return err
			}
			p.RefundAmount = refund
			p.RefundDate = &now
			p.RefundReason = reason
			if err := s.payments.Save(ctx, &p); err != nil {
				return fmt.Errorf("save refunded payment: %w", err)
			}

			order, err = s.orders.Get(ctx, p.OrderID)
			if err != nil {
				return err
			}
			cancelled, err = s.coord.cancel(ctx, &order, "payment refunded", who.ID, true)
			return err
		})
	})
	if err != nil {
		return model.Payment{}, err
	}

	s.metrics.Refund()
	s.log.WithFields(log.Fields{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
		"amount":     p.RefundAmount.String(),
	}).Info("payment refunded")
	if cancelled {
		s.metrics.OrderTransition(string(model.OrderCancelled))
		notifyAll(ctx, s.notifier, s.log, model.NewOrderEvent(model.EventOrderCancelled, &order, order.UpdatedAt))
	}
	return p, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, who model.Principal, id string) (model.Payment, error) {
	p, err := s.payments.Get(ctx, id)
	if err != nil {
		return model.Payment{}, err
	}
	if err := s.checkOrderAccess(ctx, who, p.OrderID); err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (s *PaymentService) GetPaymentByOrder(ctx context.Context, who model.Principal, orderID string) (model.Payment, error) {
	if err := s.checkOrderAccess(ctx, who, orderID); err != nil {
		return model.Payment{}, err
	}
	return s.payments.FindByOrderID(ctx, orderID)
}

// GetMyPayments devuelve los pagos de todas las órdenes del usuario.
func (s *PaymentService) GetMyPayments(ctx context.Context, userID string) ([]model.Payment, error) {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user orders: %w", err)
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	if len(ids) == 0 {
		return []model.Payment{}, nil
	}
	return s.payments.FindByOrderIDs(ctx, ids)
}

func (s *PaymentService) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return s.payments.List(ctx)
}

func (s *PaymentService) checkOrderAccess(ctx context.Context, who model.Principal, orderID string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !who.CanAccess(order.UserID) {
		return model.ErrForbidden
	}
	return nil
}

// MockGateway aprueba todo.
type MockGateway struct{}

func (MockGateway) Charge(context.Context, model.Payment) (string, error) {
	return NewTransactionID(), nil
}

// DecliningGateway rechaza todo; sirve para probar el camino de Failed.
type DecliningGateway struct{}

func (DecliningGateway) Charge(context.Context, model.Payment) (string, error) {
	return "", model.ErrPaymentDeclined
}

// NewTransactionID arma "TXN" + uuid sin guiones, en mayúsculas.
func NewTransactionID() string {
	return "TXN" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
