// Package order implements the shop order aggregate: the order root plus its
// line items, per-item options and supplies, and payment records, together
// with listing, mutation and status-transition operations over them.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors shared by all operations.
var (
	// ErrNotFound is returned when an identifier resolves to no active order.
	ErrNotFound = errors.New("order not found")
	// ErrMissingIdentifier is returned when neither a single uid nor a
	// non-empty uid set was supplied to an operation that needs a target.
	ErrMissingIdentifier = errors.New("missing order identifier")
	// ErrMalformedCursor is returned when a pagination cursor fails to decode
	// or was issued under a different sort than the current request.
	ErrMalformedCursor = errors.New("malformed pagination cursor")
)

// InvalidSortFieldError indicates a sort column outside the allow-list.
type InvalidSortFieldError struct {
	Field string
}

func (e *InvalidSortFieldError) Error() string {
	return fmt.Sprintf("sort field %q is not allowed", e.Field)
}

// InvalidDirectionError indicates a sort direction other than asc or desc.
type InvalidDirectionError struct {
	Value string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("sort order %q is not allowed", e.Value)
}

// InvalidDateFieldError indicates a date-range column outside the allow-list.
type InvalidDateFieldError struct {
	Field string
}

func (e *InvalidDateFieldError) Error() string {
	return fmt.Sprintf("date field %q is not allowed", e.Field)
}

// InvalidStatusError indicates a status value outside the enumerated set.
type InvalidStatusError struct {
	Kind  string
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid %s status %q", e.Kind, e.Value)
}

// PayStatus tracks the externally-settled payment state of an order.
type PayStatus string

const (
	PayStatusUnpaid   PayStatus = "unpaid"
	PayStatusPaid     PayStatus = "paid"
	PayStatusRefunded PayStatus = "refunded"
)

// Valid reports whether s is one of the enumerated payment statuses.
func (s PayStatus) Valid() bool {
	switch s {
	case PayStatusUnpaid, PayStatusPaid, PayStatusRefunded:
		return true
	}
	return false
}

// Status is the fulfillment status of an order.
type Status string

const (
	StatusPending   Status = "order_pending"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusConfirmed Status = "confirmed"
)

// Valid reports whether s is one of the enumerated fulfillment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusShipped, StatusDelivered, StatusConfirmed:
		return true
	}
	return false
}

// CancelStatus tracks the cancellation lifecycle, independent of fulfillment.
type CancelStatus string

const (
	CancelNone      CancelStatus = "none"
	CancelRequested CancelStatus = "requested"
	CancelAccepted  CancelStatus = "accepted"
	CancelRejected  CancelStatus = "rejected"
)

// Valid reports whether s is one of the enumerated cancellation statuses.
func (s CancelStatus) Valid() bool {
	switch s {
	case CancelNone, CancelRequested, CancelAccepted, CancelRejected:
		return true
	}
	return false
}

// Order is the aggregate root. Dependent collections are only populated on
// single-aggregate reads; listing returns roots only.
type Order struct {
	Idx       int64
	UID       string
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

	PayStatus    PayStatus
	Status       Status
	CancelStatus CancelStatus

	CancelRequestedBy string
	CancelRequestedAt *time.Time
	CancelReasonCode  string
	CancelReasonText  string
	CancelRejectText  string

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
	PaidAt    *time.Time

	IsUse     bool
	IsVisible bool
	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []Item
	Payments []Payment
	User     *UserSnapshot
}

// PriceConsistent reports whether the monetary breakdown adds up:
// payPrice == basicPrice + optionPrice + deliveryPrice - boxDc.
// Storage does not enforce this; it is a caller-level invariant.
func (o *Order) PriceConsistent() bool {
	sum := o.BasicPrice.Add(o.OptionPrice).Add(o.DeliveryPrice).Sub(o.BoxDC)
	return o.PayPrice.Equal(sum)
}

// Item is a single order line. Options and Supplies are value collections
// owned wholly by the item; they are replaced, never diffed, on update.
type Item struct {
	Idx      int64
	UID      string
	OrderIdx int64
	ItemIdx  int64
	ItemName string
	Quantity int

	SalePrice   decimal.Decimal
	OptionPrice decimal.Decimal
	SupplyPrice decimal.Decimal
	TotalPrice  decimal.Decimal

	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time

	Options  []Option
	Supplies []Supply
}

// Option is a priced add-on selected for a line item at order time.
type Option struct {
	Idx       int64
	UID       string
	ItemIdx   int64
	OptionIdx int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Supply is a supplementary product attached to a line item.
type Supply struct {
	Idx       int64
	UID       string
	ItemIdx   int64
	SupplyIdx int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// Payment records one externally-settled payment attempt for an order.
type Payment struct {
	Idx      int64
	UID      string
	OrderIdx int64

	RequestPrice   decimal.Decimal
	PaidPrice      decimal.Decimal
	CancelledPrice decimal.Decimal

	BuyerName  string
	BuyerEmail string
	BuyerPhone string

	CardName      string
	CardNo        string
	BankName      string
	GatewayTID    string
	GatewayMID    string
	GatewayStatus string

	ApprovedAt  *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserSnapshot is a read-only view of the user the order references.
type UserSnapshot struct {
	Idx   int64
	UID   string
	Name  string
	Email string
	Phone string
}

// CursorBound is the decoded keyset position: the typed value of the active
// sort column for the last yielded row plus that row's sequence number.
type CursorBound struct {
	Value any
	Idx   int64
}

// ListQuery is the storage-level read request assembled by the service:
// filter predicate, deterministic ordering and an optional keyset bound.
// FetchLimit already includes the lookahead row.
type ListQuery struct {
	Filter     Filter
	Sort       SortField
	Direction  Direction
	FetchLimit int
	After      *CursorBound
}

// RootPatch holds the optional root fields of an update. Nil fields are left
// untouched.
type RootPatch struct {
	OrdNo         *string
	BasicPrice    *decimal.Decimal
	OptionPrice   *decimal.Decimal
	DeliveryPrice *decimal.Decimal
	BoxDC         *decimal.Decimal
	PayPrice      *decimal.Decimal
	StockCount    *int
	Memo          *string
	PayStatus     *PayStatus

	BuyerName  *string
	BuyerEmail *string
	BuyerPhone *string
	BuyerZip   *string
	BuyerAddr1 *string
	BuyerAddr2 *string

	ReceiverName  *string
	ReceiverPhone *string
	ReceiverZip   *string
	ReceiverAddr1 *string
	ReceiverAddr2 *string

	PayerName *string
	PayMethod *string
	PaidAt    *time.Time
}

// ItemChange describes one line item in an update. A set UID patches the
// existing item in place and fully replaces its options and supplies; an
// empty UID inserts the item as new.
type ItemChange struct {
	UID string

	ItemIdx  int64
	ItemName string
	Quantity int

	SalePrice   decimal.Decimal
	OptionPrice decimal.Decimal
	SupplyPrice decimal.Decimal
	TotalPrice  decimal.Decimal
	Status      string

	Options  []Option
	Supplies []Supply
}

// PaymentChange carries the mutable payment fields for create or reconcile.
type PaymentChange struct {
	RequestPrice   decimal.Decimal
	PaidPrice      decimal.Decimal
	CancelledPrice decimal.Decimal

	BuyerName  string
	BuyerEmail string
	BuyerPhone string

	CardName      string
	CardNo        string
	BankName      string
	GatewayTID    string
	GatewayMID    string
	GatewayStatus string

	ApprovedAt  *time.Time
	CancelledAt *time.Time
}

// UpdateSpec is the full storage-level update: applied inside one
// transaction, all or nothing.
type UpdateSpec struct {
	UID            string
	Root           RootPatch
	DeleteItemUIDs []string
	Items          []ItemChange

	// Payment reconciles the first existing payment record when present.
	// CreatePayment permits inserting a new record when none exists.
	Payment       *PaymentChange
	CreatePayment bool
}

// CancelChange is the storage-level cancellation-status mutation. RequestedAt
// is only set when transitioning to "requested"; Clear wipes all cancellation
// metadata and is set when transitioning to "none".
type CancelChange struct {
	Status      CancelStatus
	ReasonCode  string
	ReasonText  string
	RequestedAt *time.Time
	Clear       bool
}

// Repository defines persistence operations for order aggregates. All
// mutating methods run inside a single database transaction; bulk methods
// return the number of root rows actually matched.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Order, error)
	Count(ctx context.Context, f Filter) (int64, error)
	GetByUID(ctx context.Context, uid string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, spec UpdateSpec) error
	Delete(ctx context.Context, uids []string, hard bool) (int64, error)
	SetStatus(ctx context.Context, uids []string, status Status) (int64, error)
	SetCancelStatus(ctx context.Context, uids []string, change CancelChange) (int64, error)
}
