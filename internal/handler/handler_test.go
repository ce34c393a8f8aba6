package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shop-order-service/internal/domain/order"
)

// stubRepo is a minimal order.Repository for exercising the HTTP layer.
type stubRepo struct {
	orders map[string]*order.Order

	listErr error
}

func newStubRepo(orders ...*order.Order) *stubRepo {
	r := &stubRepo{orders: map[string]*order.Order{}}
	for _, o := range orders {
		r.orders[o.UID] = o
	}
	return r
}

func (r *stubRepo) List(_ context.Context, q order.ListQuery) ([]order.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []order.Order
	for _, o := range r.orders {
		out = append(out, *o)
		if len(out) == q.FetchLimit {
			break
		}
	}
	return out, nil
}

func (r *stubRepo) Count(context.Context, order.Filter) (int64, error) {
	return int64(len(r.orders)), nil
}

func (r *stubRepo) GetByUID(_ context.Context, uid string) (*order.Order, error) {
	o, ok := r.orders[uid]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (r *stubRepo) Create(_ context.Context, o *order.Order) error {
	r.orders[o.UID] = o
	return nil
}

func (r *stubRepo) Update(_ context.Context, spec order.UpdateSpec) error {
	if _, ok := r.orders[spec.UID]; !ok {
		return order.ErrNotFound
	}
	return nil
}

func (r *stubRepo) Delete(_ context.Context, uids []string, _ bool) (int64, error) {
	var n int64
	for _, uid := range uids {
		if _, ok := r.orders[uid]; ok {
			delete(r.orders, uid)
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) SetStatus(_ context.Context, uids []string, status order.Status) (int64, error) {
	var n int64
	for _, uid := range uids {
		if o, ok := r.orders[uid]; ok {
			o.Status = status
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) SetCancelStatus(_ context.Context, uids []string, change order.CancelChange) (int64, error) {
	var n int64
	for _, uid := range uids {
		if o, ok := r.orders[uid]; ok {
			o.CancelStatus = change.Status
			n++
		}
	}
	return n, nil
}

func newTestMux(repo *stubRepo) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(order.NewService(repo)).Routes(mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetOrder_OK(t *testing.T) {
	repo := newStubRepo(&order.Order{
		UID:      "o-1",
		OrdNo:    "ORD-1",
		PayPrice: decimal.NewFromInt(100),
		Status:   order.StatusShipped,
	})
	mux := newTestMux(repo)

	rec := serve(mux, http.MethodGet, "/admin/orders/o-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ORD-1", body["ordNo"])
	assert.Equal(t, "shipped", body["orderStatus"])
}

func TestGetOrder_NotFound(t *testing.T) {
	mux := newTestMux(newStubRepo())

	rec := serve(mux, http.MethodGet, "/admin/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestListOrders_BadQueryParams(t *testing.T) {
	mux := newTestMux(newStubRepo())

	tests := []struct {
		name   string
		target string
	}{
		{"bad limit", "/admin/orders?limit=ten"},
		{"bad start date", "/admin/orders?startDate=tomorrow"},
		{"bad bool", "/admin/orders?isUse=maybe"},
		{"unknown sort field", "/admin/orders?sortBy=buyer_name"},
		{"unknown direction", "/admin/orders?order=sideways"},
		{"unknown date field", "/admin/orders?dateField=deletedAt"},
		{"malformed cursor", "/admin/orders?cursor=@@@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListOrders_EmptyPageHasItemsArray(t *testing.T) {
	mux := newTestMux(newStubRepo())

	rec := serve(mux, http.MethodGet, "/admin/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestCreateOrder_Created(t *testing.T) {
	mux := newTestMux(newStubRepo())

	body := `{
		"ordNo": "ORD-2",
		"payPrice": "150.00",
		"buyerName": "Dana Kim",
		"orderItems": [
			{"itemIdx": 1, "itemName": "Coat", "quantity": 1,
			 "salePrice": "150.00", "optionPrice": "0", "supplyPrice": "0",
			 "totalPrice": "150.00", "status": "order_pending",
			 "options": [], "supplies": []}
		]
	}`
	rec := serve(mux, http.MethodPost, "/admin/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["uid"])
	assert.Equal(t, "unpaid", resp["payStatus"])
}

func TestCreateOrder_UnknownFieldRejected(t *testing.T) {
	mux := newTestMux(newStubRepo())

	rec := serve(mux, http.MethodPost, "/admin/orders", `{"ordNumber": "typo"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_InvalidStatusUnprocessable(t *testing.T) {
	mux := newTestMux(newStubRepo(&order.Order{UID: "o-1"}))

	rec := serve(mux, http.MethodPost, "/admin/orders/status", `{"uid":"o-1","status":"teleported"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateOrder_InvalidPayStatusUnprocessable(t *testing.T) {
	mux := newTestMux(newStubRepo(&order.Order{UID: "o-1"}))

	rec := serve(mux, http.MethodPatch, "/admin/orders/o-1", `{"payStatus":"bartered"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateStatus_MissingTarget(t *testing.T) {
	mux := newTestMux(newStubRepo())

	rec := serve(mux, http.MethodPost, "/admin/orders/status", `{"status":"shipped"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveOrders_BulkResult(t *testing.T) {
	mux := newTestMux(newStubRepo(
		&order.Order{UID: "o-1"},
		&order.Order{UID: "o-2"},
	))

	rec := serve(mux, http.MethodPost, "/admin/orders/remove", `{"uids":["o-1","o-2","missing"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp mutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bulk", resp.Mode)
	assert.Equal(t, int64(2), resp.Affected)
}

func TestCancelStatus_SingleReturnsOrder(t *testing.T) {
	mux := newTestMux(newStubRepo(&order.Order{UID: "o-1"}))

	rec := serve(mux, http.MethodPost, "/admin/orders/cancel-status",
		`{"uid":"o-1","status":"requested","reasonCode":"changed_mind"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mode  string          `json:"mode"`
		Order json.RawMessage `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "single", resp.Mode)
	assert.NotEmpty(t, resp.Order)
}
