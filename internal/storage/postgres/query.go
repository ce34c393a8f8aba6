package postgres

import (
	"strconv"
	"strings"

	"github.com/xenking/shop-order-service/internal/domain/order"
)

// sortColumns is the only place a sort field becomes SQL. Fields outside
// this closed mapping never reach a query; the service rejects them first.
var sortColumns = map[order.SortField]string{
	order.SortIdx:         "idx",
	order.SortOrdNo:       "ord_no",
	order.SortPayPrice:    "pay_price",
	order.SortOrderStatus: "order_status",
	order.SortCreatedAt:   "created_at",
	order.SortUpdatedAt:   "updated_at",
}

// dateColumns is the closed mapping for date-range filter targets.
var dateColumns = map[order.DateField]string{
	order.DateCreatedAt:         "created_at",
	order.DateUpdatedAt:         "updated_at",
	order.DatePaidAt:            "paid_at",
	order.DateCancelRequestedAt: "cancel_requested_at",
}

// argList collects positional query arguments and hands out placeholders.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

// filterConds translates an order.Filter into WHERE conditions. The
// free-text query, when present, is OR-matched across name, email, phone and
// order number and supersedes the per-field filters.
func filterConds(f order.Filter, a *argList) []string {
	conds := []string{
		"is_use = " + a.add(f.WantUse()),
		"is_visible = " + a.add(f.WantVisible()),
	}

	if f.Query != "" {
		p := a.add(substring(f.Query))
		conds = append(conds,
			"(buyer_name ILIKE "+p+" OR buyer_email ILIKE "+p+
				" OR buyer_phone ILIKE "+p+" OR ord_no ILIKE "+p+")")
	} else {
		if f.BuyerName != "" {
			conds = append(conds, "buyer_name ILIKE "+a.add(substring(f.BuyerName)))
		}
		if f.BuyerEmail != "" {
			conds = append(conds, "buyer_email ILIKE "+a.add(substring(f.BuyerEmail)))
		}
		if f.BuyerPhone != "" {
			conds = append(conds, "buyer_phone ILIKE "+a.add(substring(f.BuyerPhone)))
		}
		if f.OrdNo != "" {
			conds = append(conds, "ord_no ILIKE "+a.add(substring(f.OrdNo)))
		}
	}

	if col, ok := dateColumns[f.DateField]; ok {
		if f.StartDate != nil {
			conds = append(conds, col+" >= "+a.add(*f.StartDate))
		}
		if f.EndDate != nil {
			conds = append(conds, col+" <= "+a.add(*f.EndDate))
		}
	}

	return conds
}

func substring(s string) string {
	return "%" + s + "%"
}

// buildListQuery assembles the keyset page query: filter predicate AND seek
// bound, ordered by (sortColumn, idx) in the requested direction with idx as
// the tie-breaker, limited to the fetch size (page plus lookahead row).
func buildListQuery(q order.ListQuery) (string, []any) {
	col := sortColumns[q.Sort]

	var a argList
	conds := filterConds(q.Filter, &a)

	if q.After != nil {
		op := ">"
		if q.Direction == order.Desc {
			op = "<"
		}
		v := a.add(q.After.Value)
		i := a.add(q.After.Idx)
		conds = append(conds,
			"("+col+" "+op+" "+v+" OR ("+col+" = "+v+" AND idx "+op+" "+i+"))")
	}

	dir := "ASC"
	if q.Direction == order.Desc {
		dir = "DESC"
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(orderColumns)
	sb.WriteString(" FROM orders WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
	sb.WriteString(" ORDER BY ")
	sb.WriteString(col)
	sb.WriteString(" ")
	sb.WriteString(dir)
	sb.WriteString(", idx ")
	sb.WriteString(dir)
	sb.WriteString(" LIMIT ")
	sb.WriteString(a.add(q.FetchLimit))

	return sb.String(), a.args
}

// buildCountQuery assembles the COUNT query for a filter predicate.
func buildCountQuery(f order.Filter) (string, []any) {
	var a argList
	conds := filterConds(f, &a)

	return "SELECT COUNT(*) FROM orders WHERE " + strings.Join(conds, " AND "), a.args
}
