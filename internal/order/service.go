package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service owns order creation and the status lifecycle. Listing endpoints
// read the Repository directly; everything that writes goes through here.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the checkout payload, recomputes the total from the
// line items and persists the order atomically at PENDING.
//
// The declared total is only accepted when it matches the recomputed sum;
// the client is never the source of truth for money.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, validationErrorf("cart is empty")
	}

	sum := decimal.Zero
	items := make([]Item, 0, len(req.Items))
	for i, in := range req.Items {
		if in.Quantity < 1 {
			return nil, validationErrorf("item %d: quantity must be at least 1", i)
		}
		if in.Price.IsNegative() {
			return nil, validationErrorf("item %d: price must not be negative", i)
		}
		sum = sum.Add(in.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
		items = append(items, Item{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     in.Price,
		})
	}

	if !req.TotalAmount.Equal(sum) {
		return nil, validationErrorf("declared total %s does not match item sum %s",
			req.TotalAmount.String(), sum.String())
	}

	o := &Order{
		UserID:          userID,
		TotalAmount:     sum,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	if err := s.repo.Create(ctx, o, items); err != nil {
		return nil, fmt.Errorf("repo.Create: %w", err)
	}
	return o, nil
}

// SetStatus moves an order to target if the lifecycle graph allows it.
// Setting the current status again is a no-op. The underlying write is a
// compare-and-swap, so a concurrent transition surfaces as ErrConflict
// instead of being silently overwritten.
func (s *Service) SetStatus(ctx context.Context, id int64, target Status) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == target {
		return o, nil
	}
	if !CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, target, ErrInvalidTransition)
	}
	if err := s.repo.UpdateStatus(ctx, id, o.Status, target); err != nil {
		return nil, err
	}
	o.Status = target
	return o, nil
}

// ConfirmPayment handles a verified gateway notification for the invoice
// identified by externalID: PENDING moves through PAID to PROCESSED.
// Redelivered notifications for an already-paid order are a no-op, so the
// webhook is safe to retry.
func (s *Service) ConfirmPayment(ctx context.Context, externalID string) (*Order, error) {
	o, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusCancelled:
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, StatusPaid, ErrInvalidTransition)
	case StatusPending:
		if err := s.repo.UpdateStatus(ctx, o.ID, StatusPending, StatusPaid); err != nil {
			return s.recoverPaidRace(ctx, externalID, err)
		}
		o.Status = StatusPaid
		fallthrough
	case StatusPaid:
		if err := s.repo.UpdateStatus(ctx, o.ID, StatusPaid, StatusProcessed); err != nil {
			return s.recoverPaidRace(ctx, externalID, err)
		}
		o.Status = StatusProcessed
		return o, nil
	default:
		// already PROCESSED or further along
		return o, nil
	}
}

// recoverPaidRace re-reads the order after a lost CAS: if a concurrent
// delivery already advanced it into the revenue set the notification is
// treated as applied.
func (s *Service) recoverPaidRace(ctx context.Context, externalID string, casErr error) (*Order, error) {
	if !errors.Is(casErr, ErrConflict) {
		return nil, casErr
	}
	o, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	for _, st := range RevenueStatuses {
		if o.Status == st {
			return o, nil
		}
	}
	return nil, casErr
}

// Stats is the admin dashboard summary. Users is filled by the caller.
type Stats struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Users        int64           `json:"users"`
	ActiveOrders int64           `json:"activeOrders"`
	RecentOrders []Order         `json:"recentOrders"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	revenue, err := s.repo.SumTotals(ctx, RevenueStatuses)
	if err != nil {
		return nil, fmt.Errorf("repo.SumTotals: %w", err)
	}
	active, err := s.repo.CountByStatus(ctx, []Status{StatusPending, StatusPaid})
	if err != nil {
		return nil, fmt.Errorf("repo.CountByStatus: %w", err)
	}
	recent, err := s.repo.ListRecent(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("repo.ListRecent: %w", err)
	}
	return &Stats{Revenue: revenue, ActiveOrders: active, RecentOrders: recent}, nil
}
