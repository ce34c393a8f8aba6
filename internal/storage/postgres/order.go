package postgres

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shop-order-service/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// orderColumns is the root projection shared by list and single reads.
// user_idx is coalesced so the nullable FK scans into a plain int64.
const orderColumns = `idx, uid, ord_no, shop_idx, seller_idx, COALESCE(user_idx, 0),
	basic_price, option_price, delivery_price, box_dc, pay_price, stock_count, memo,
	pay_status, order_status, cancel_status,
	cancel_requested_by, cancel_requested_at, cancel_reason_code, cancel_reason_text, cancel_reject_text,
	buyer_name, buyer_email, buyer_phone, buyer_zip, buyer_addr1, buyer_addr2,
	receiver_name, receiver_phone, receiver_zip, receiver_addr1, receiver_addr2,
	payer_name, pay_method, paid_at, is_use, is_visible, created_at, updated_at`

const insertOrderSQL = `INSERT INTO orders (
	uid, ord_no, shop_idx, seller_idx, user_idx,
	basic_price, option_price, delivery_price, box_dc, pay_price, stock_count, memo,
	pay_status, order_status, cancel_status,
	buyer_name, buyer_email, buyer_phone, buyer_zip, buyer_addr1, buyer_addr2,
	receiver_name, receiver_phone, receiver_zip, receiver_addr1, receiver_addr2,
	payer_name, pay_method, is_use, is_visible
) VALUES (
	$1, $2, $3, $4, NULLIF($5, 0),
	$6, $7, $8, $9, $10, $11, $12,
	$13, $14, $15,
	$16, $17, $18, $19, $20, $21,
	$22, $23, $24, $25, $26,
	$27, $28, $29, $30
) RETURNING idx, created_at, updated_at`

const insertItemSQL = `INSERT INTO order_items (
	uid, order_idx, item_idx, item_name, quantity,
	sale_price, option_price, supply_price, total_price, item_status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING idx`

const updateItemSQL = `UPDATE order_items SET
	item_idx = $1, item_name = $2, quantity = $3,
	sale_price = $4, option_price = $5, supply_price = $6, total_price = $7,
	item_status = $8, updated_at = now()
WHERE idx = $9`

const insertOptionSQL = `INSERT INTO order_options (uid, item_idx, option_idx, name, price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6)`

const insertSupplySQL = `INSERT INTO order_supplies (uid, item_idx, supply_idx, name, price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6)`

const insertPaymentSQL = `INSERT INTO order_payments (
	uid, order_idx, request_price, paid_price, cancelled_price,
	buyer_name, buyer_email, buyer_phone,
	card_name, card_no, bank_name, gateway_tid, gateway_mid, gateway_status,
	approved_at, cancelled_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const updatePaymentSQL = `UPDATE order_payments SET
	request_price = $1, paid_price = $2, cancelled_price = $3,
	buyer_name = $4, buyer_email = $5, buyer_phone = $6,
	card_name = $7, card_no = $8, bank_name = $9,
	gateway_tid = $10, gateway_mid = $11, gateway_status = $12,
	approved_at = $13, cancelled_at = $14, updated_at = now()
WHERE idx = $15`

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List fetches one keyset page of order roots.
func (r *OrderRepository) List(ctx context.Context, q order.ListQuery) ([]order.Order, error) {
	sql, args := buildListQuery(q)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}

	return out, nil
}

// Count returns the number of roots matching the filter predicate.
func (r *OrderRepository) Count(ctx context.Context, f order.Filter) (int64, error) {
	sql, args := buildCountQuery(f.Normalize())

	var n int64
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return n, nil
}

// GetByUID fetches the full aggregate: root, user snapshot, items with their
// options and supplies, and payments. Soft-deleted roots do not resolve.
func (r *OrderRepository) GetByUID(ctx context.Context, uid string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE uid = $1 AND is_use = TRUE AND is_visible = TRUE",
		uid)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", uid)
	}

	if o.UserIdx != 0 {
		u, err := r.userSnapshot(ctx, o.UserIdx)
		if err != nil {
			return nil, err
		}
		o.User = u
	}

	items, err := r.loadItems(ctx, o.Idx)
	if err != nil {
		return nil, err
	}
	o.Items = items

	payments, err := r.loadPayments(ctx, o.Idx)
	if err != nil {
		return nil, err
	}
	o.Payments = payments

	return &o, nil
}

// Create inserts the whole aggregate in one transaction. Dependent rows
// without a uid get one assigned here. On any failure nothing persists.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderSQL,
			o.UID, o.OrdNo, o.ShopIdx, o.SellerIdx, o.UserIdx,
			o.BasicPrice, o.OptionPrice, o.DeliveryPrice, o.BoxDC, o.PayPrice, o.StockCount, o.Memo,
			string(o.PayStatus), string(o.Status), string(o.CancelStatus),
			o.BuyerName, o.BuyerEmail, o.BuyerPhone, o.BuyerZip, o.BuyerAddr1, o.BuyerAddr2,
			o.ReceiverName, o.ReceiverPhone, o.ReceiverZip, o.ReceiverAddr1, o.ReceiverAddr2,
			o.PayerName, o.PayMethod, o.IsUse, o.IsVisible,
		).Scan(&o.Idx, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		for i := range o.Items {
			item := &o.Items[i]
			item.OrderIdx = o.Idx
			if err := insertItem(ctx, tx, item); err != nil {
				return err
			}
		}

		for i := range o.Payments {
			p := &o.Payments[i]
			p.OrderIdx = o.Idx
			if err := insertPayment(ctx, tx, p); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.UID)
	}
	return nil
}

// Update applies the whole update spec in one transaction: root patch, item
// delete-list, item patches/inserts with full option/supply replacement, and
// payment reconciliation.
func (r *OrderRepository) Update(ctx context.Context, spec order.UpdateSpec) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var orderIdx int64
		err := tx.QueryRow(ctx,
			"SELECT idx FROM orders WHERE uid = $1 AND is_use = TRUE AND is_visible = TRUE",
			spec.UID).Scan(&orderIdx)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return errors.Wrap(err, "resolve order")
		}

		if err := patchRoot(ctx, tx, orderIdx, spec.Root); err != nil {
			return err
		}

		if len(spec.DeleteItemUIDs) > 0 {
			if err := deleteItems(ctx, tx, orderIdx, spec.DeleteItemUIDs); err != nil {
				return err
			}
		}

		for i := range spec.Items {
			change := &spec.Items[i]
			if change.UID == "" {
				item := itemFromChange(change, orderIdx)
				if err := insertItem(ctx, tx, &item); err != nil {
					return err
				}
				continue
			}
			if err := patchItem(ctx, tx, orderIdx, change); err != nil {
				return err
			}
		}

		if spec.Payment != nil {
			if err := reconcilePayment(ctx, tx, orderIdx, spec.Payment, spec.CreatePayment); err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete removes aggregates singly or in bulk. Dependents are always
// physically deleted in dependency order; the roots are then hard-deleted or
// have both soft-delete flags flipped off. Returns the number of root rows
// affected.
func (r *OrderRepository) Delete(ctx context.Context, uids []string, hard bool) (int64, error) {
	var affected int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rootIdxs, err := resolveIdxs(ctx, tx,
			"SELECT idx FROM orders WHERE uid = ANY($1)", uids)
		if err != nil {
			return errors.Wrap(err, "resolve orders")
		}
		if len(rootIdxs) == 0 {
			return nil
		}

		itemIdxs, err := resolveIdxs(ctx, tx,
			"SELECT idx FROM order_items WHERE order_idx = ANY($1)", rootIdxs)
		if err != nil {
			return errors.Wrap(err, "resolve items")
		}

		if len(itemIdxs) > 0 {
			if _, err := tx.Exec(ctx, "DELETE FROM order_options WHERE item_idx = ANY($1)", itemIdxs); err != nil {
				return errors.Wrap(err, "delete options")
			}
			if _, err := tx.Exec(ctx, "DELETE FROM order_supplies WHERE item_idx = ANY($1)", itemIdxs); err != nil {
				return errors.Wrap(err, "delete supplies")
			}
		}
		if _, err := tx.Exec(ctx, "DELETE FROM order_items WHERE order_idx = ANY($1)", rootIdxs); err != nil {
			return errors.Wrap(err, "delete items")
		}
		if _, err := tx.Exec(ctx, "DELETE FROM order_payments WHERE order_idx = ANY($1)", rootIdxs); err != nil {
			return errors.Wrap(err, "delete payments")
		}

		if hard {
			tag, err := tx.Exec(ctx, "DELETE FROM orders WHERE idx = ANY($1)", rootIdxs)
			if err != nil {
				return errors.Wrap(err, "delete orders")
			}
			affected = tag.RowsAffected()
			return nil
		}

		tag, err := tx.Exec(ctx,
			"UPDATE orders SET is_use = FALSE, is_visible = FALSE, updated_at = now() WHERE idx = ANY($1)",
			rootIdxs)
		if err != nil {
			return errors.Wrap(err, "soft delete orders")
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// SetStatus updates the fulfillment status on every active row the uid set
// matches. No other field changes.
func (r *OrderRepository) SetStatus(ctx context.Context, uids []string, status order.Status) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET order_status = $1, updated_at = now()
		 WHERE uid = ANY($2) AND is_use = TRUE AND is_visible = TRUE`,
		string(status), uids)
	if err != nil {
		return 0, errors.Wrap(err, "set order status")
	}
	return tag.RowsAffected(), nil
}

// SetCancelStatus updates the cancellation status and its bookkeeping on
// every active row the uid set matches.
func (r *OrderRepository) SetCancelStatus(ctx context.Context, uids []string, change order.CancelChange) (int64, error) {
	var (
		sql  string
		args []any
	)
	switch {
	case change.Clear:
		sql = `UPDATE orders SET cancel_status = $1,
			cancel_reason_code = '', cancel_reason_text = '', cancel_reject_text = '',
			cancel_requested_by = '', cancel_requested_at = NULL, updated_at = now()
		WHERE uid = ANY($2) AND is_use = TRUE AND is_visible = TRUE`
		args = []any{string(change.Status), uids}
	case change.RequestedAt != nil:
		sql = `UPDATE orders SET cancel_status = $1,
			cancel_reason_code = $2, cancel_reason_text = $3, cancel_requested_at = $4, updated_at = now()
		WHERE uid = ANY($5) AND is_use = TRUE AND is_visible = TRUE`
		args = []any{string(change.Status), change.ReasonCode, change.ReasonText, *change.RequestedAt, uids}
	default:
		sql = `UPDATE orders SET cancel_status = $1,
			cancel_reason_code = $2, cancel_reason_text = $3, updated_at = now()
		WHERE uid = ANY($4) AND is_use = TRUE AND is_visible = TRUE`
		args = []any{string(change.Status), change.ReasonCode, change.ReasonText, uids}
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "set cancel status")
	}
	return tag.RowsAffected(), nil
}

// --- helpers ---

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		o                             order.Order
		payStatus, status, cancelStat string
	)
	err := row.Scan(
		&o.Idx, &o.UID, &o.OrdNo, &o.ShopIdx, &o.SellerIdx, &o.UserIdx,
		&o.BasicPrice, &o.OptionPrice, &o.DeliveryPrice, &o.BoxDC, &o.PayPrice, &o.StockCount, &o.Memo,
		&payStatus, &status, &cancelStat,
		&o.CancelRequestedBy, &o.CancelRequestedAt, &o.CancelReasonCode, &o.CancelReasonText, &o.CancelRejectText,
		&o.BuyerName, &o.BuyerEmail, &o.BuyerPhone, &o.BuyerZip, &o.BuyerAddr1, &o.BuyerAddr2,
		&o.ReceiverName, &o.ReceiverPhone, &o.ReceiverZip, &o.ReceiverAddr1, &o.ReceiverAddr2,
		&o.PayerName, &o.PayMethod, &o.PaidAt, &o.IsUse, &o.IsVisible, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.PayStatus = order.PayStatus(payStatus)
	o.Status = order.Status(status)
	o.CancelStatus = order.CancelStatus(cancelStat)
	return o, nil
}

func (r *OrderRepository) userSnapshot(ctx context.Context, userIdx int64) (*order.UserSnapshot, error) {
	var u order.UserSnapshot
	err := r.pool.QueryRow(ctx,
		"SELECT idx, uid, name, email, phone FROM users WHERE idx = $1",
		userIdx).Scan(&u.Idx, &u.UID, &u.Name, &u.Email, &u.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load user snapshot")
	}
	return &u, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIdx int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT idx, uid, order_idx, item_idx, item_name, quantity,
			sale_price, option_price, supply_price, total_price, item_status,
			created_at, updated_at
		FROM order_items WHERE order_idx = $1 ORDER BY idx`, orderIdx)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(
			&it.Idx, &it.UID, &it.OrderIdx, &it.ItemIdx, &it.ItemName, &it.Quantity,
			&it.SalePrice, &it.OptionPrice, &it.SupplyPrice, &it.TotalPrice, &it.Status,
			&it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate items")
	}
	if len(items) == 0 {
		return nil, nil
	}

	itemIdxs := make([]int64, len(items))
	byIdx := make(map[int64]*order.Item, len(items))
	for i := range items {
		itemIdxs[i] = items[i].Idx
		byIdx[items[i].Idx] = &items[i]
	}

	if err := r.loadOptions(ctx, itemIdxs, byIdx); err != nil {
		return nil, err
	}
	if err := r.loadSupplies(ctx, itemIdxs, byIdx); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *OrderRepository) loadOptions(ctx context.Context, itemIdxs []int64, byIdx map[int64]*order.Item) error {
	rows, err := r.pool.Query(ctx, `
		SELECT idx, uid, item_idx, option_idx, name, price, quantity
		FROM order_options WHERE item_idx = ANY($1) ORDER BY idx`, itemIdxs)
	if err != nil {
		return errors.Wrap(err, "query options")
	}
	defer rows.Close()

	for rows.Next() {
		var op order.Option
		if err := rows.Scan(&op.Idx, &op.UID, &op.ItemIdx, &op.OptionIdx, &op.Name, &op.Price, &op.Quantity); err != nil {
			return errors.Wrap(err, "scan option")
		}
		if item, ok := byIdx[op.ItemIdx]; ok {
			item.Options = append(item.Options, op)
		}
	}
	return errors.Wrap(rows.Err(), "iterate options")
}

func (r *OrderRepository) loadSupplies(ctx context.Context, itemIdxs []int64, byIdx map[int64]*order.Item) error {
	rows, err := r.pool.Query(ctx, `
		SELECT idx, uid, item_idx, supply_idx, name, price, quantity
		FROM order_supplies WHERE item_idx = ANY($1) ORDER BY idx`, itemIdxs)
	if err != nil {
		return errors.Wrap(err, "query supplies")
	}
	defer rows.Close()

	for rows.Next() {
		var sp order.Supply
		if err := rows.Scan(&sp.Idx, &sp.UID, &sp.ItemIdx, &sp.SupplyIdx, &sp.Name, &sp.Price, &sp.Quantity); err != nil {
			return errors.Wrap(err, "scan supply")
		}
		if item, ok := byIdx[sp.ItemIdx]; ok {
			item.Supplies = append(item.Supplies, sp)
		}
	}
	return errors.Wrap(rows.Err(), "iterate supplies")
}

func (r *OrderRepository) loadPayments(ctx context.Context, orderIdx int64) ([]order.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT idx, uid, order_idx, request_price, paid_price, cancelled_price,
			buyer_name, buyer_email, buyer_phone,
			card_name, card_no, bank_name, gateway_tid, gateway_mid, gateway_status,
			approved_at, cancelled_at, created_at, updated_at
		FROM order_payments WHERE order_idx = $1 ORDER BY idx`, orderIdx)
	if err != nil {
		return nil, errors.Wrap(err, "query payments")
	}
	defer rows.Close()

	var out []order.Payment
	for rows.Next() {
		var p order.Payment
		if err := rows.Scan(
			&p.Idx, &p.UID, &p.OrderIdx, &p.RequestPrice, &p.PaidPrice, &p.CancelledPrice,
			&p.BuyerName, &p.BuyerEmail, &p.BuyerPhone,
			&p.CardName, &p.CardNo, &p.BankName, &p.GatewayTID, &p.GatewayMID, &p.GatewayStatus,
			&p.ApprovedAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate payments")
}

// insertItem inserts a line item plus its options and supplies. Options and
// supplies are batched: they arrive together and have no independent
// identity to preserve.
func insertItem(ctx context.Context, tx pgx.Tx, item *order.Item) error {
	if item.UID == "" {
		item.UID = uuid.New().String()
	}

	err := tx.QueryRow(ctx, insertItemSQL,
		item.UID, item.OrderIdx, item.ItemIdx, item.ItemName, item.Quantity,
		item.SalePrice, item.OptionPrice, item.SupplyPrice, item.TotalPrice, item.Status,
	).Scan(&item.Idx)
	if err != nil {
		return errors.Wrap(err, "insert item")
	}

	return insertChildren(ctx, tx, item.Idx, item.Options, item.Supplies)
}

func insertChildren(ctx context.Context, tx pgx.Tx, itemIdx int64, options []order.Option, supplies []order.Supply) error {
	if len(options) == 0 && len(supplies) == 0 {
		return nil
	}

	var b pgx.Batch
	for _, op := range options {
		uid := op.UID
		if uid == "" {
			uid = uuid.New().String()
		}
		b.Queue(insertOptionSQL, uid, itemIdx, op.OptionIdx, op.Name, op.Price, op.Quantity)
	}
	for _, sp := range supplies {
		uid := sp.UID
		if uid == "" {
			uid = uuid.New().String()
		}
		b.Queue(insertSupplySQL, uid, itemIdx, sp.SupplyIdx, sp.Name, sp.Price, sp.Quantity)
	}

	br := tx.SendBatch(ctx, &b)
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrap(err, "insert item children")
		}
	}
	return br.Close()
}

func insertPayment(ctx context.Context, tx pgx.Tx, p *order.Payment) error {
	if p.UID == "" {
		p.UID = uuid.New().String()
	}

	_, err := tx.Exec(ctx, insertPaymentSQL,
		p.UID, p.OrderIdx, p.RequestPrice, p.PaidPrice, p.CancelledPrice,
		p.BuyerName, p.BuyerEmail, p.BuyerPhone,
		p.CardName, p.CardNo, p.BankName, p.GatewayTID, p.GatewayMID, p.GatewayStatus,
		p.ApprovedAt, p.CancelledAt,
	)
	return errors.Wrap(err, "insert payment")
}

// patchRoot applies the pointer-field patch to the root. updated_at is
// always touched since the aggregate is changing in this transaction.
func patchRoot(ctx context.Context, tx pgx.Tx, orderIdx int64, p order.RootPatch) error {
	var a argList
	sets := []string{"updated_at = now()"}

	add := func(col string, v any) {
		sets = append(sets, col+" = "+a.add(v))
	}

	if p.OrdNo != nil {
		add("ord_no", *p.OrdNo)
	}
	if p.BasicPrice != nil {
		add("basic_price", *p.BasicPrice)
	}
	if p.OptionPrice != nil {
		add("option_price", *p.OptionPrice)
	}
	if p.DeliveryPrice != nil {
		add("delivery_price", *p.DeliveryPrice)
	}
	if p.BoxDC != nil {
		add("box_dc", *p.BoxDC)
	}
	if p.PayPrice != nil {
		add("pay_price", *p.PayPrice)
	}
	if p.StockCount != nil {
		add("stock_count", *p.StockCount)
	}
	if p.Memo != nil {
		add("memo", *p.Memo)
	}
	if p.PayStatus != nil {
		add("pay_status", string(*p.PayStatus))
	}
	if p.BuyerName != nil {
		add("buyer_name", *p.BuyerName)
	}
	if p.BuyerEmail != nil {
		add("buyer_email", *p.BuyerEmail)
	}
	if p.BuyerPhone != nil {
		add("buyer_phone", *p.BuyerPhone)
	}
	if p.BuyerZip != nil {
		add("buyer_zip", *p.BuyerZip)
	}
	if p.BuyerAddr1 != nil {
		add("buyer_addr1", *p.BuyerAddr1)
	}
	if p.BuyerAddr2 != nil {
		add("buyer_addr2", *p.BuyerAddr2)
	}
	if p.ReceiverName != nil {
		add("receiver_name", *p.ReceiverName)
	}
	if p.ReceiverPhone != nil {
		add("receiver_phone", *p.ReceiverPhone)
	}
	if p.ReceiverZip != nil {
		add("receiver_zip", *p.ReceiverZip)
	}
	if p.ReceiverAddr1 != nil {
		add("receiver_addr1", *p.ReceiverAddr1)
	}
	if p.ReceiverAddr2 != nil {
		add("receiver_addr2", *p.ReceiverAddr2)
	}
	if p.PayerName != nil {
		add("payer_name", *p.PayerName)
	}
	if p.PayMethod != nil {
		add("pay_method", *p.PayMethod)
	}
	if p.PaidAt != nil {
		add("paid_at", *p.PaidAt)
	}

	sql := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE idx = " + a.add(orderIdx)
	if _, err := tx.Exec(ctx, sql, a.args...); err != nil {
		return errors.Wrap(err, "patch order root")
	}
	return nil
}

// deleteItems removes the listed items of this order along with their
// options and supplies. UIDs that do not belong to the order are ignored.
func deleteItems(ctx context.Context, tx pgx.Tx, orderIdx int64, uids []string) error {
	itemIdxs, err := resolveIdxs(ctx, tx,
		"SELECT idx FROM order_items WHERE uid = ANY($1) AND order_idx = $2", uids, orderIdx)
	if err != nil {
		return errors.Wrap(err, "resolve delete items")
	}
	if len(itemIdxs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, "DELETE FROM order_options WHERE item_idx = ANY($1)", itemIdxs); err != nil {
		return errors.Wrap(err, "delete item options")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM order_supplies WHERE item_idx = ANY($1)", itemIdxs); err != nil {
		return errors.Wrap(err, "delete item supplies")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM order_items WHERE idx = ANY($1)", itemIdxs); err != nil {
		return errors.Wrap(err, "delete items")
	}
	return nil
}

// patchItem updates an existing item's scalar fields in place and fully
// replaces its options and supplies: the old sets are deleted and the
// supplied sets inserted fresh.
func patchItem(ctx context.Context, tx pgx.Tx, orderIdx int64, change *order.ItemChange) error {
	var itemIdx int64
	err := tx.QueryRow(ctx,
		"SELECT idx FROM order_items WHERE uid = $1 AND order_idx = $2",
		change.UID, orderIdx).Scan(&itemIdx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(order.ErrNotFound, "item %q", change.UID)
		}
		return errors.Wrap(err, "resolve item")
	}

	_, err = tx.Exec(ctx, updateItemSQL,
		change.ItemIdx, change.ItemName, change.Quantity,
		change.SalePrice, change.OptionPrice, change.SupplyPrice, change.TotalPrice,
		change.Status, itemIdx)
	if err != nil {
		return errors.Wrap(err, "update item")
	}

	if _, err := tx.Exec(ctx, "DELETE FROM order_options WHERE item_idx = $1", itemIdx); err != nil {
		return errors.Wrap(err, "replace options")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM order_supplies WHERE item_idx = $1", itemIdx); err != nil {
		return errors.Wrap(err, "replace supplies")
	}

	return insertChildren(ctx, tx, itemIdx, change.Options, change.Supplies)
}

// reconcilePayment patches the first existing payment record when one
// exists; otherwise inserts a new one only when explicitly requested.
func reconcilePayment(ctx context.Context, tx pgx.Tx, orderIdx int64, change *order.PaymentChange, create bool) error {
	var paymentIdx int64
	err := tx.QueryRow(ctx,
		"SELECT idx FROM order_payments WHERE order_idx = $1 ORDER BY idx LIMIT 1",
		orderIdx).Scan(&paymentIdx)
	switch {
	case err == nil:
		_, err = tx.Exec(ctx, updatePaymentSQL,
			change.RequestPrice, change.PaidPrice, change.CancelledPrice,
			change.BuyerName, change.BuyerEmail, change.BuyerPhone,
			change.CardName, change.CardNo, change.BankName,
			change.GatewayTID, change.GatewayMID, change.GatewayStatus,
			change.ApprovedAt, change.CancelledAt, paymentIdx)
		return errors.Wrap(err, "update payment")
	case errors.Is(err, pgx.ErrNoRows):
		if !create {
			return nil
		}
		p := order.Payment{OrderIdx: orderIdx}
		applyPaymentChange(&p, change)
		return insertPayment(ctx, tx, &p)
	default:
		return errors.Wrap(err, "resolve payment")
	}
}

func applyPaymentChange(p *order.Payment, c *order.PaymentChange) {
	p.RequestPrice = c.RequestPrice
	p.PaidPrice = c.PaidPrice
	p.CancelledPrice = c.CancelledPrice
	p.BuyerName = c.BuyerName
	p.BuyerEmail = c.BuyerEmail
	p.BuyerPhone = c.BuyerPhone
	p.CardName = c.CardName
	p.CardNo = c.CardNo
	p.BankName = c.BankName
	p.GatewayTID = c.GatewayTID
	p.GatewayMID = c.GatewayMID
	p.GatewayStatus = c.GatewayStatus
	p.ApprovedAt = c.ApprovedAt
	p.CancelledAt = c.CancelledAt
}

func itemFromChange(c *order.ItemChange, orderIdx int64) order.Item {
	return order.Item{
		OrderIdx:    orderIdx,
		ItemIdx:     c.ItemIdx,
		ItemName:    c.ItemName,
		Quantity:    c.Quantity,
		SalePrice:   c.SalePrice,
		OptionPrice: c.OptionPrice,
		SupplyPrice: c.SupplyPrice,
		TotalPrice:  c.TotalPrice,
		Status:      c.Status,
		Options:     c.Options,
		Supplies:    c.Supplies,
	}
}

func resolveIdxs(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]int64, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var idxs []int64
	for rows.Next() {
		var idx int64
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		idxs = append(idxs, idx)
	}
	return idxs, rows.Err()
}
