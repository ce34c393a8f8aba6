package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Mode reports whether a mutation targeted one aggregate or a set.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeBulk   Mode = "bulk"
)

// ListParams is the caller-facing list request.
type ListParams struct {
	Filter Filter
	SortBy SortField
	Order  Direction
	Limit  int
	Cursor string
}

// ListResult is one page of orders plus the request-time totals. TotalAll
// counts rows matching only the default active/visible predicate;
// TotalFiltered counts rows matching the full filter. The counts and the
// page are separate queries and are not guaranteed mutually consistent at
// the same instant.
type ListResult struct {
	Items         []Order
	NextCursor    string
	TotalAll      int64
	TotalFiltered int64
}

// CreateInput holds the fields of a new aggregate. Unset monetary fields
// default to zero; status fields start at their initial states.
type CreateInput struct {
	OrdNo     string
	ShopIdx   int64
	SellerIdx int64
	UserIdx   int64

	BasicPrice    decimal.Decimal
	OptionPrice   decimal.Decimal
	DeliveryPrice decimal.Decimal
	BoxDC         decimal.Decimal
	PayPrice      decimal.Decimal
	StockCount    int
	Memo          string

	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	BuyerZip   string
	BuyerAddr1 string
	BuyerAddr2 string

	ReceiverName  string
	ReceiverPhone string
	ReceiverZip   string
	ReceiverAddr1 string
	ReceiverAddr2 string

	PayerName string
	PayMethod string

	Items   []ItemChange
	Payment *PaymentChange
}

// UpdateInput holds a partial update of an existing aggregate. Only fields
// set in Root are patched; DeleteItemUIDs are removed (with their options
// and supplies) before Items are applied.
type UpdateInput struct {
	UID            string
	Root           RootPatch
	DeleteItemUIDs []string
	Items          []ItemChange
	Payment        *PaymentChange
	CreatePayment  bool
}

// RemoveInput identifies one aggregate (UID) or a set (UIDs) to delete.
// Hard removes rows physically; the default flips the soft-delete flags.
type RemoveInput struct {
	UID  string
	UIDs []string
	Hard bool
}

// StatusInput identifies targets for a fulfillment status transition.
type StatusInput struct {
	UID    string
	UIDs   []string
	Status Status
}

// CancelInput identifies targets for a cancellation status transition.
type CancelInput struct {
	UID        string
	UIDs       []string
	Status     CancelStatus
	ReasonCode string
	ReasonText string
}

// MutationResult reports what a bulk-capable mutation touched. For bulk
// targets Affected may be less than the requested set size: rows that do not
// exist or are already filtered out are silently skipped (best effort over
// the valid subset, not all-or-nothing).
type MutationResult struct {
	Mode     Mode
	Affected int64
}

// CancelResult is a MutationResult that also carries the refreshed aggregate
// for single-target cancellation updates.
type CancelResult struct {
	MutationResult
	Order *Order
}

// Service encapsulates the order aggregate operations: listing with keyset
// pagination, aggregate reads and writes, removal, and the two status
// lifecycles.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{
		orders: orders,
		now:    time.Now,
	}
}

// List returns one page of orders under the requested filter and sort, plus
// a cursor for the next page when one exists.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortIdx
	}
	if !sortBy.Valid() {
		return nil, &InvalidSortFieldError{Field: string(p.SortBy)}
	}

	dir := p.Order
	if dir == "" {
		dir = Desc
	}
	if !dir.Valid() {
		return nil, &InvalidDirectionError{Value: string(p.Order)}
	}

	if p.Filter.DateField != "" && !p.Filter.DateField.Valid() {
		return nil, &InvalidDateFieldError{Field: string(p.Filter.DateField)}
	}

	limit := p.Limit
	switch {
	case limit == 0:
		limit = defaultLimit
	case limit < 1:
		limit = 1
	case limit > maxLimit:
		limit = maxLimit
	}

	q := ListQuery{
		Filter:     p.Filter.Normalize(),
		Sort:       sortBy,
		Direction:  dir,
		FetchLimit: limit + 1, // lookahead row decides whether a next page exists
	}

	if p.Cursor != "" {
		c, err := decodeCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
		if c.Sort != sortDescriptor(sortBy, dir) {
			return nil, ErrMalformedCursor
		}
		val, err := sortBy.ParseValue(c.Value)
		if err != nil {
			return nil, ErrMalformedCursor
		}
		q.After = &CursorBound{Value: val, Idx: c.Idx}
	}

	// The page and the two counts are independent reads; run them
	// concurrently. They may observe slightly different states, which is the
	// documented trade-off for not wrapping every list in a snapshot read.
	var (
		rows          []Order
		totalAll      int64
		totalFiltered int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.orders.List(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		totalAll, err = s.orders.Count(gctx, defaultFilter())
		return err
	})
	g.Go(func() error {
		var err error
		totalFiltered, err = s.orders.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	res := &ListResult{
		Items:         rows,
		TotalAll:      totalAll,
		TotalFiltered: totalFiltered,
	}
	if len(rows) > limit {
		res.Items = rows[:limit]
		last := &res.Items[limit-1]
		res.NextCursor = encodeCursor(cursor{
			Sort:  sortDescriptor(sortBy, dir),
			Value: sortBy.ValueOf(last),
			Idx:   last.Idx,
		})
	}

	return res, nil
}

// Get fetches a single aggregate with all dependents. There are no partial
// reads: the full aggregate is returned or ErrNotFound.
func (s *Service) Get(ctx context.Context, uid string) (*Order, error) {
	if uid == "" {
		return nil, ErrMissingIdentifier
	}
	return s.orders.GetByUID(ctx, uid)
}

// Create persists a new aggregate in one transaction and returns it fully
// hydrated, equivalent to a Get of the new identifier.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	o := &Order{
		UID:       uuid.New().String(),
		OrdNo:     in.OrdNo,
		ShopIdx:   in.ShopIdx,
		SellerIdx: in.SellerIdx,
		UserIdx:   in.UserIdx,

		BasicPrice:    in.BasicPrice,
		OptionPrice:   in.OptionPrice,
		DeliveryPrice: in.DeliveryPrice,
		BoxDC:         in.BoxDC,
		PayPrice:      in.PayPrice,
		StockCount:    in.StockCount,
		Memo:          in.Memo,

		PayStatus:    PayStatusUnpaid,
		Status:       StatusPending,
		CancelStatus: CancelNone,

		BuyerName:  in.BuyerName,
		BuyerEmail: in.BuyerEmail,
		BuyerPhone: in.BuyerPhone,
		BuyerZip:   in.BuyerZip,
		BuyerAddr1: in.BuyerAddr1,
		BuyerAddr2: in.BuyerAddr2,

		ReceiverName:  in.ReceiverName,
		ReceiverPhone: in.ReceiverPhone,
		ReceiverZip:   in.ReceiverZip,
		ReceiverAddr1: in.ReceiverAddr1,
		ReceiverAddr2: in.ReceiverAddr2,

		PayerName: in.PayerName,
		PayMethod: in.PayMethod,

		IsUse:     true,
		IsVisible: true,
	}

	for _, ic := range in.Items {
		o.Items = append(o.Items, Item{
			ItemIdx:     ic.ItemIdx,
			ItemName:    ic.ItemName,
			Quantity:    ic.Quantity,
			SalePrice:   ic.SalePrice,
			OptionPrice: ic.OptionPrice,
			SupplyPrice: ic.SupplyPrice,
			TotalPrice:  ic.TotalPrice,
			Status:      ic.Status,
			Options:     ic.Options,
			Supplies:    ic.Supplies,
		})
	}

	if in.Payment != nil {
		o.Payments = []Payment{paymentFromChange(*in.Payment)}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return s.orders.GetByUID(ctx, o.UID)
}

// Update applies a partial update to an existing aggregate in one
// transaction and returns it fully hydrated. An update never leaves items
// updated but options stale: a failure anywhere rolls everything back.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*Order, error) {
	if in.UID == "" {
		return nil, ErrMissingIdentifier
	}
	if in.Root.PayStatus != nil && !in.Root.PayStatus.Valid() {
		return nil, &InvalidStatusError{Kind: "pay", Value: string(*in.Root.PayStatus)}
	}

	spec := UpdateSpec{
		UID:            in.UID,
		Root:           in.Root,
		DeleteItemUIDs: in.DeleteItemUIDs,
		Items:          in.Items,
		Payment:        in.Payment,
		CreatePayment:  in.CreatePayment,
	}
	if err := s.orders.Update(ctx, spec); err != nil {
		return nil, err
	}

	return s.orders.GetByUID(ctx, in.UID)
}

// Remove deletes one aggregate or a set, soft by default. Dependents go
// first, in dependency order, inside one transaction. Bulk removal is best
// effort over the uids that resolve.
func (s *Service) Remove(ctx context.Context, in RemoveInput) (*MutationResult, error) {
	uids, mode, err := resolveTargets(in.UID, in.UIDs)
	if err != nil {
		return nil, err
	}

	affected, err := s.orders.Delete(ctx, uids, in.Hard)
	if err != nil {
		return nil, errors.Wrap(err, "remove orders")
	}
	if mode == ModeSingle && affected == 0 {
		return nil, ErrNotFound
	}

	return &MutationResult{Mode: mode, Affected: affected}, nil
}

// UpdateStatus sets the fulfillment status on one aggregate or a set, with
// no side effects on other fields. Concurrent transitions on the same order
// race with last-write-wins; there is no version column.
func (s *Service) UpdateStatus(ctx context.Context, in StatusInput) (*MutationResult, error) {
	if !in.Status.Valid() {
		return nil, &InvalidStatusError{Kind: "order", Value: string(in.Status)}
	}

	uids, mode, err := resolveTargets(in.UID, in.UIDs)
	if err != nil {
		return nil, err
	}

	affected, err := s.orders.SetStatus(ctx, uids, in.Status)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	if mode == ModeSingle && affected == 0 {
		return nil, ErrNotFound
	}

	return &MutationResult{Mode: mode, Affected: affected}, nil
}

// UpdateCancelStatus sets the cancellation status and reason bookkeeping.
// Transitioning to "none" clears all cancellation metadata; transitioning to
// "requested" stamps the request time. The requester identity is supplied by
// the upstream auth layer, never invented here. Single-target calls return
// the refreshed aggregate.
func (s *Service) UpdateCancelStatus(ctx context.Context, in CancelInput) (*CancelResult, error) {
	if !in.Status.Valid() {
		return nil, &InvalidStatusError{Kind: "cancel", Value: string(in.Status)}
	}

	uids, mode, err := resolveTargets(in.UID, in.UIDs)
	if err != nil {
		return nil, err
	}

	change := CancelChange{
		Status:     in.Status,
		ReasonCode: in.ReasonCode,
		ReasonText: in.ReasonText,
	}
	switch in.Status {
	case CancelNone:
		change.Clear = true
		change.ReasonCode = ""
		change.ReasonText = ""
	case CancelRequested:
		t := s.now()
		change.RequestedAt = &t
	}

	affected, err := s.orders.SetCancelStatus(ctx, uids, change)
	if err != nil {
		return nil, errors.Wrap(err, "update cancel status")
	}
	if mode == ModeSingle && affected == 0 {
		return nil, ErrNotFound
	}

	res := &CancelResult{MutationResult: MutationResult{Mode: mode, Affected: affected}}
	if mode == ModeSingle {
		o, err := s.orders.GetByUID(ctx, uids[0])
		if err != nil {
			return nil, err
		}
		res.Order = o
	}

	return res, nil
}

// resolveTargets picks the single-or-bulk addressing mode. A single uid wins
// over a set when both are present.
func resolveTargets(uid string, uids []string) ([]string, Mode, error) {
	switch {
	case uid != "":
		return []string{uid}, ModeSingle, nil
	case len(uids) > 0:
		return uids, ModeBulk, nil
	default:
		return nil, "", ErrMissingIdentifier
	}
}

func paymentFromChange(c PaymentChange) Payment {
	return Payment{
		RequestPrice:   c.RequestPrice,
		PaidPrice:      c.PaidPrice,
		CancelledPrice: c.CancelledPrice,
		BuyerName:      c.BuyerName,
		BuyerEmail:     c.BuyerEmail,
		BuyerPhone:     c.BuyerPhone,
		CardName:       c.CardName,
		CardNo:         c.CardNo,
		BankName:       c.BankName,
		GatewayTID:     c.GatewayTID,
		GatewayMID:     c.GatewayMID,
		GatewayStatus:  c.GatewayStatus,
		ApprovedAt:     c.ApprovedAt,
		CancelledAt:    c.CancelledAt,
	}
}
