package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"modestwear/internal/domain"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/metrics"
	"modestwear/internal/repos"
	"modestwear/internal/validate"
)

type OrderService struct {
	Tx      *repos.TxManager
	Carts   *repos.CartRepo
	Inv     *repos.InventoryRepo
	Orders  *repos.OrderRepo
	Users   *repos.UserRepo
	Mail    mailer.Mailer
	Compose *mailer.Composer

	log zerolog.Logger
}

func NewOrderService(tx *repos.TxManager, carts *repos.CartRepo, inv *repos.InventoryRepo, orders *repos.OrderRepo, users *repos.UserRepo, mail mailer.Mailer, compose *mailer.Composer) *OrderService {
	return &OrderService{
		Tx: tx, Carts: carts, Inv: inv, Orders: orders, Users: users, Mail: mail, Compose: compose,
		log: applog.Component("orders"),
	}
}

// Checkout turns the user's cart into an order in one transaction: every
// line is checked and decremented against stock, the order is written with
// the prices at purchase time and the cart is emptied. A shortfall on any
// line rolls everything back and returns *InsufficientStockError.
func (s *OrderService) Checkout(ctx context.Context, userID, address string) (*domain.Order, error) {
	address = strings.TrimSpace(address)
	if address == "" || len(address) > 500 {
		return nil, invalid("address is required and must be at most 500 characters")
	}

	var order domain.Order
	err := s.Tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		carts, inv := s.Carts.WithTx(tx), s.Inv.WithTx(tx)
		lines, err := carts.Lines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		for _, l := range lines {
			if l.Stock < l.Quantity {
				return shortfall(l, l.Stock)
			}
		}

		order = domain.Order{UserID: userID, Address: address, Status: domain.OrderPending, TotalPrice: decimal.Zero}
		for _, l := range lines {
			ok, err := inv.Decrement(ctx, l.VariantID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				left, err := inv.Stock(ctx, l.VariantID)
				if err != nil && !errors.Is(err, repos.ErrNotFound) {
					return err
				}
				return shortfall(l, left)
			}
			order.TotalPrice = order.TotalPrice.Add(l.Subtotal())
			order.Items = append(order.Items, domain.OrderItem{
				VariantID:       l.VariantID,
				ProductID:       l.ProductID,
				ProductName:     l.ProductName,
				Quantity:        l.Quantity,
				PriceAtPurchase: l.UnitPrice,
			})
		}
		if err := s.Orders.WithTx(tx).Create(ctx, &order); err != nil {
			return err
		}
		return carts.Clear(ctx, userID)
	})

	var short *InsufficientStockError
	switch {
	case err == nil:
		metrics.Checkouts.WithLabelValues("placed").Inc()
	case errors.As(err, &short):
		metrics.Checkouts.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	case errors.Is(err, ErrEmptyCart):
		metrics.Checkouts.WithLabelValues("empty_cart").Inc()
		return nil, err
	default:
		metrics.Checkouts.WithLabelValues("error").Inc()
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID).Str("user_id", userID).Str("total", order.TotalPrice.StringFixed(2)).Msg("order.placed")
	s.confirm(ctx, &order)
	return &order, nil
}

func shortfall(l domain.CartLine, available int) error {
	return &InsufficientStockError{VariantID: l.VariantID, ProductName: l.ProductName, Requested: l.Quantity, Available: available}
}

// confirm mails the order confirmation. The order is already committed, so
// failures are only logged.
func (s *OrderService) confirm(ctx context.Context, o *domain.Order) {
	if s.Mail == nil || s.Compose == nil {
		return
	}
	u, err := s.Users.ByID(ctx, o.UserID)
	if err != nil {
		s.log.Error().Err(err).Str("order_id", o.ID).Msg("order.confirmation.user")
		return
	}
	msg, err := s.Compose.OrderConfirmation(*u, *o)
	if err == nil {
		err = s.Mail.Send(ctx, msg)
	}
	if err != nil {
		s.log.Error().Err(err).Str("order_id", o.ID).Msg("order.confirmation.send")
	}
}

// Order returns one of the user's orders. Staff may read any order.
func (s *OrderService) Order(ctx context.Context, userID string, staff bool, orderID string) (*domain.Order, error) {
	o, err := s.Orders.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID && !staff {
		// Do not reveal that someone else's order exists.
		return nil, repos.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) History(ctx context.Context, userID string) ([]domain.Order, error) {
	out, err := s.Orders.ForUser(ctx, userID)
	if out == nil && err == nil {
		out = []domain.Order{}
	}
	return out, err
}

// All lists orders for staff, optionally by status.
func (s *OrderService) All(ctx context.Context, status string) ([]domain.Order, error) {
	if status != "" {
		v, ok := validate.OrderStatus(status)
		if !ok {
			return nil, invalid("unknown status %q", status)
		}
		status = v
	}
	out, err := s.Orders.All(ctx, status)
	if out == nil && err == nil {
		out = []domain.Order{}
	}
	return out, err
}

func (s *OrderService) SetStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	v, ok := validate.OrderStatus(status)
	if !ok {
		return nil, invalid("unknown status %q", status)
	}
	if err := s.Orders.SetStatus(ctx, orderID, v); err != nil {
		return nil, err
	}
	return s.Orders.ByID(ctx, orderID)
}
