package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the requested sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// SortField is one of the enumerated sortable columns. Arbitrary column
// names are never accepted: every field maps to a typed value codec here and
// to a concrete column in the storage layer.
type SortField string

const (
	SortIdx         SortField = "idx"
	SortOrdNo       SortField = "ordNo"
	SortPayPrice    SortField = "payPrice"
	SortOrderStatus SortField = "orderStatus"
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
)

// sortValueKind describes how a sort column's value is carried through a
// cursor: formatted to a string on encode, parsed back to a typed query
// argument on decode.
type sortValueKind int

const (
	kindInt64 sortValueKind = iota
	kindString
	kindDecimal
	kindTime
)

var sortFieldKinds = map[SortField]sortValueKind{
	SortIdx:         kindInt64,
	SortOrdNo:       kindString,
	SortPayPrice:    kindDecimal,
	SortOrderStatus: kindString,
	SortCreatedAt:   kindTime,
	SortUpdatedAt:   kindTime,
}

// Valid reports whether f is in the sortable allow-list.
func (f SortField) Valid() bool {
	_, ok := sortFieldKinds[f]
	return ok
}

// ValueOf formats the row's value of this sort column for cursor transport.
func (f SortField) ValueOf(o *Order) string {
	switch f {
	case SortIdx:
		return strconv.FormatInt(o.Idx, 10)
	case SortOrdNo:
		return o.OrdNo
	case SortPayPrice:
		return o.PayPrice.String()
	case SortOrderStatus:
		return string(o.Status)
	case SortCreatedAt:
		return o.CreatedAt.UTC().Format(time.RFC3339Nano)
	case SortUpdatedAt:
		return o.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return ""
}

// ParseValue converts a cursor-carried string back into the typed value used
// as the keyset bound argument. The error is reported as ErrMalformedCursor
// by the caller: a value that does not parse cannot come from a cursor this
// service issued.
func (f SortField) ParseValue(s string) (any, error) {
	switch sortFieldKinds[f] {
	case kindInt64:
		return strconv.ParseInt(s, 10, 64)
	case kindDecimal:
		return decimal.NewFromString(s)
	case kindTime:
		return time.Parse(time.RFC3339Nano, s)
	default:
		return s, nil
	}
}

// DateField is one of the enumerated columns a date-range filter may target.
type DateField string

const (
	DateCreatedAt         DateField = "createdAt"
	DateUpdatedAt         DateField = "updatedAt"
	DatePaidAt            DateField = "paidAt"
	DateCancelRequestedAt DateField = "cancelRequestedAt"
)

// Valid reports whether f is in the date-range allow-list.
func (f DateField) Valid() bool {
	switch f {
	case DateCreatedAt, DateUpdatedAt, DatePaidAt, DateCancelRequestedAt:
		return true
	}
	return false
}

// Filter is the read predicate for listing and counting orders.
//
// When Query is non-empty it is OR-matched (substring) against buyer name,
// email, phone and order number, and the per-field filters are ignored.
// Otherwise each non-blank per-field filter is AND-ed in as a substring
// match. The date range applies >= / <= on the allow-listed DateField.
// IsUse/IsVisible default to true when nil: only active, visible rows match.
type Filter struct {
	Query string

	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	OrdNo      string

	DateField DateField
	StartDate *time.Time
	EndDate   *time.Time

	IsUse     *bool
	IsVisible *bool
}

// Normalize trims free-text inputs. Blank per-field filters collapse to
// empty so storage can skip them.
func (f Filter) Normalize() Filter {
	f.Query = strings.TrimSpace(f.Query)
	f.BuyerName = strings.TrimSpace(f.BuyerName)
	f.BuyerEmail = strings.TrimSpace(f.BuyerEmail)
	f.BuyerPhone = strings.TrimSpace(f.BuyerPhone)
	f.OrdNo = strings.TrimSpace(f.OrdNo)
	return f
}

// ActiveOnly reports whether the filter matches only active, visible rows.
func (f Filter) ActiveOnly() bool {
	return f.WantUse() && f.WantVisible()
}

// WantUse resolves the is_use flag, defaulting to true.
func (f Filter) WantUse() bool {
	return f.IsUse == nil || *f.IsUse
}

// WantVisible resolves the is_visible flag, defaulting to true.
func (f Filter) WantVisible() bool {
	return f.IsVisible == nil || *f.IsVisible
}

// defaultFilter is the predicate behind the totalAll count: active and
// visible rows only, nothing else.
func defaultFilter() Filter {
	return Filter{}
}
