//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type createOrderRequest struct {
	OrdNo     string `json:"ordNo"`
	ShopIdx   int64  `json:"shopIdx"`
	SellerIdx int64  `json:"sellerIdx"`

	BasicPrice    string `json:"basicPrice"`
	OptionPrice   string `json:"optionPrice"`
	DeliveryPrice string `json:"deliveryPrice"`
	BoxDC         string `json:"boxDc"`
	PayPrice      string `json:"payPrice"`
	Memo          string `json:"memo,omitempty"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail,omitempty"`
	BuyerPhone string `json:"buyerPhone,omitempty"`

	Items   []itemPayload   `json:"orderItems,omitempty"`
	Payment *paymentPayload `json:"payment,omitempty"`
}

type itemPayload struct {
	UID      string `json:"uid,omitempty"`
	ItemIdx  int64  `json:"itemIdx"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`

	SalePrice   string `json:"salePrice"`
	OptionPrice string `json:"optionPrice"`
	SupplyPrice string `json:"supplyPrice"`
	TotalPrice  string `json:"totalPrice"`
	Status      string `json:"status"`

	Options  []childPayload `json:"options,omitempty"`
	Supplies []childPayload `json:"supplies,omitempty"`
}

type childPayload struct {
	OptionIdx int64  `json:"optionIdx,omitempty"`
	SupplyIdx int64  `json:"supplyIdx,omitempty"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

type paymentPayload struct {
	RequestPrice string `json:"requestPrice"`
	PaidPrice    string `json:"paidPrice"`
	BuyerName    string `json:"buyerName,omitempty"`
}

type targetRequest struct {
	UID        string   `json:"uid,omitempty"`
	UIDs       []string `json:"uids,omitempty"`
	Hard       bool     `json:"hard,omitempty"`
	Status     string   `json:"status,omitempty"`
	ReasonCode string   `json:"reasonCode,omitempty"`
	ReasonText string   `json:"reasonText,omitempty"`
}

// createTestOrder creates an order through the API and returns it.
func createTestOrder(t *testing.T, ordNo string) orderResponse {
	t.Helper()

	req := createOrderRequest{
		OrdNo:         ordNo,
		ShopIdx:       1,
		SellerIdx:     7,
		BasicPrice:    "10000.00",
		OptionPrice:   "0.00",
		DeliveryPrice: "2500.00",
		BoxDC:         "0.00",
		PayPrice:      "12500.00",
		BuyerName:     "Integration Buyer",
		BuyerEmail:    "buyer@example.com",
		Items: []itemPayload{
			{
				ItemIdx:     901,
				ItemName:    "Test item",
				Quantity:    1,
				SalePrice:   "10000.00",
				OptionPrice: "0.00",
				SupplyPrice: "0.00",
				TotalPrice:  "10000.00",
				Status:      "order_pending",
				Options: []childPayload{
					{OptionIdx: 3, Name: "Color black", Price: "0.00", Quantity: 1},
				},
			},
		},
		Payment: &paymentPayload{RequestPrice: "12500.00", PaidPrice: "0.00"},
	}

	resp := doPost(t, "/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	return decodeJSON[orderResponse](t, resp)
}

func TestCreateOrder_ReturnsFullAggregate(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-CREATE-1")

	if !uuidPattern.MatchString(o.UID) {
		t.Errorf("uid: got %q, want uuid", o.UID)
	}
	if o.PayStatus != "unpaid" || o.OrderStatus != "order_pending" || o.CancelStatus != "none" {
		t.Errorf("initial statuses: got %s/%s/%s", o.PayStatus, o.OrderStatus, o.CancelStatus)
	}
	if len(o.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(o.Items))
	}
	if len(o.Items[0].Options) != 1 {
		t.Errorf("options: got %d, want 1", len(o.Items[0].Options))
	}
	if len(o.Payments) != 1 {
		t.Errorf("payments: got %d, want 1", len(o.Payments))
	}
}

func TestCreateOrder_AppearsFirstInDefaultListing(t *testing.T) {
	before := listOrders(t, "/admin/orders")

	o := createTestOrder(t, "ORD-IT-LIST-1")

	after := listOrders(t, "/admin/orders")
	if len(after.Items) == 0 {
		t.Fatal("listing is empty")
	}
	// Default ordering is newest first.
	if after.Items[0].UID != o.UID {
		t.Errorf("first item: got %s, want %s", after.Items[0].UID, o.UID)
	}
	if after.TotalAll != before.TotalAll+1 {
		t.Errorf("totalAll: got %d, want %d", after.TotalAll, before.TotalAll+1)
	}
}

func TestListOrders_FilteredCountAndTotals(t *testing.T) {
	createTestOrder(t, "ORD-IT-FILTER-XYZZY")

	page := listOrders(t, "/admin/orders?ordNo=FILTER-XYZZY")
	if page.TotalFiltered != 1 {
		t.Errorf("totalFiltered: got %d, want 1", page.TotalFiltered)
	}
	if page.TotalAll <= page.TotalFiltered {
		t.Errorf("totalAll=%d should exceed totalFiltered=%d", page.TotalAll, page.TotalFiltered)
	}
	if len(page.Items) != 1 || page.Items[0].OrdNo != "ORD-IT-FILTER-XYZZY" {
		t.Fatalf("unexpected page: %+v", page.Items)
	}
}

func TestListOrders_PaginationWalkIsComplete(t *testing.T) {
	for i := range 5 {
		createTestOrder(t, fmt.Sprintf("ORD-IT-PAGE-%d", i))
	}

	seen := map[string]bool{}
	path := "/admin/orders?limit=2&q=ORD-IT-PAGE"
	for page := 0; ; page++ {
		if page > 10 {
			t.Fatal("pagination did not terminate")
		}

		res := listOrders(t, path)
		for _, o := range res.Items {
			if seen[o.UID] {
				t.Fatalf("order %s returned twice", o.UID)
			}
			seen[o.UID] = true
		}
		if res.NextCursor == "" {
			break
		}
		path = "/admin/orders?limit=2&q=ORD-IT-PAGE&cursor=" + res.NextCursor
	}

	if len(seen) != 5 {
		t.Errorf("walk saw %d orders, want 5", len(seen))
	}
}

func TestListOrders_MalformedCursor(t *testing.T) {
	resp := doGet(t, "/admin/orders?cursor=%21%21not-a-cursor")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListOrders_UnknownSortField(t *testing.T) {
	resp := doGet(t, "/admin/orders?sortBy=buyer_name")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/admin/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateOrder_PatchRootAndItems(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-UPDATE-1")

	patch := map[string]any{
		"memo": "updated by test",
		"orderItems": []map[string]any{
			{
				"uid":         o.Items[0].UID,
				"itemIdx":     901,
				"itemName":    "Renamed item",
				"quantity":    2,
				"salePrice":   "10000.00",
				"optionPrice": "0.00",
				"supplyPrice": "0.00",
				"totalPrice":  "20000.00",
				"status":      "order_pending",
				"options": []map[string]any{
					{"optionIdx": 4, "name": "Color red", "price": "0.00", "quantity": 1},
				},
				"supplies": []map[string]any{},
			},
		},
	}

	resp := doPatch(t, "/admin/orders/"+o.UID, patch)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	updated := decodeJSON[orderResponse](t, resp)
	if updated.Memo != "updated by test" {
		t.Errorf("memo: got %q", updated.Memo)
	}
	if len(updated.Items) != 1 || updated.Items[0].ItemName != "Renamed item" {
		t.Fatalf("items: %+v", updated.Items)
	}
	// Options are replaced wholesale, not merged.
	if len(updated.Items[0].Options) != 1 || updated.Items[0].Options[0].Name != "Color red" {
		t.Errorf("options: %+v", updated.Items[0].Options)
	}
}

func TestRemoveOrder_SoftHidesFromReads(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-SOFT-1")

	resp := doPost(t, "/admin/orders/remove", targetRequest{UID: o.UID})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decodeJSON[mutationResponse](t, resp)
	if res.Mode != "single" || res.Affected != 1 {
		t.Fatalf("result: %+v", res)
	}

	getResp := doGet(t, "/admin/orders/"+o.UID)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("after soft remove: expected 404, got %d", getResp.StatusCode)
	}
}

func TestRemoveOrders_BulkBestEffort(t *testing.T) {
	a := createTestOrder(t, "ORD-IT-BULK-A")
	b := createTestOrder(t, "ORD-IT-BULK-B")

	resp := doPost(t, "/admin/orders/remove", targetRequest{
		UIDs: []string{a.UID, b.UID, "00000000-0000-0000-0000-000000000000"},
		Hard: true,
	})
	defer resp.Body.Close()

	res := decodeJSON[mutationResponse](t, resp)
	if res.Mode != "bulk" {
		t.Errorf("mode: got %s", res.Mode)
	}
	if res.Affected != 2 {
		t.Errorf("affected: got %d, want 2", res.Affected)
	}
}

func TestCreateOrder_RollsBackOnPaymentFailure(t *testing.T) {
	// Payment amounts are NUMERIC(14,2); this request price overflows the
	// column, so the payment insert fails after the root and item inserts
	// already succeeded inside the same transaction.
	req := createOrderRequest{
		OrdNo:         "ORD-IT-ATOMIC-1",
		ShopIdx:       1,
		SellerIdx:     7,
		BasicPrice:    "10000.00",
		OptionPrice:   "0.00",
		DeliveryPrice: "2500.00",
		BoxDC:         "0.00",
		PayPrice:      "12500.00",
		BuyerName:     "Atomic Buyer",
		Items: []itemPayload{
			{
				ItemIdx:     903,
				ItemName:    "Never persisted item",
				Quantity:    1,
				SalePrice:   "10000.00",
				OptionPrice: "0.00",
				SupplyPrice: "0.00",
				TotalPrice:  "10000.00",
				Status:      "order_pending",
			},
		},
		Payment: &paymentPayload{RequestPrice: "99999999999999.99", PaidPrice: "0.00"},
	}

	resp := doPost(t, "/admin/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	if n := queryInt64(t, "SELECT COUNT(*) FROM orders WHERE ord_no = $1", "ORD-IT-ATOMIC-1"); n != 0 {
		t.Errorf("root rows after rollback: got %d, want 0", n)
	}
	if n := queryInt64(t, "SELECT COUNT(*) FROM order_items WHERE item_name = $1", "Never persisted item"); n != 0 {
		t.Errorf("item rows after rollback: got %d, want 0", n)
	}
}

func TestUpdateOrder_PaymentPatchedInPlace(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-PAY-1")
	if len(o.Payments) != 1 {
		t.Fatalf("payments after create: got %d, want 1", len(o.Payments))
	}
	paymentUID := o.Payments[0].UID

	patch := map[string]any{
		"payment": map[string]any{
			"requestPrice": "12500.00",
			"paidPrice":    "12500.00",
		},
	}
	resp := doPatch(t, "/admin/orders/"+o.UID, patch)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	updated := decodeJSON[orderResponse](t, resp)
	if len(updated.Payments) != 1 {
		t.Fatalf("payments after patch: got %d, want 1", len(updated.Payments))
	}
	if updated.Payments[0].UID != paymentUID {
		t.Errorf("payment was replaced, not patched: %s != %s", updated.Payments[0].UID, paymentUID)
	}

	n := queryInt64(t,
		`SELECT COUNT(*) FROM order_payments p
		 JOIN orders o ON o.idx = p.order_idx
		 WHERE o.uid = $1 AND p.paid_price = 12500.00`, o.UID)
	if n != 1 {
		t.Errorf("patched payment rows: got %d, want 1", n)
	}
}

func TestUpdateOrder_PaymentCreatedOnlyWhenRequested(t *testing.T) {
	req := createOrderRequest{
		OrdNo:         "ORD-IT-PAY-2",
		ShopIdx:       1,
		SellerIdx:     7,
		BasicPrice:    "8000.00",
		OptionPrice:   "0.00",
		DeliveryPrice: "2500.00",
		BoxDC:         "0.00",
		PayPrice:      "10500.00",
		BuyerName:     "No Payment Buyer",
	}
	createResp := doPost(t, "/admin/orders", req)
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", createResp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, createResp)
	if len(o.Payments) != 0 {
		t.Fatalf("payments after create: got %d, want 0", len(o.Payments))
	}

	// A payment change without createPayment has nothing to patch and must
	// not insert.
	patch := map[string]any{
		"payment": map[string]any{"requestPrice": "10500.00", "paidPrice": "10500.00"},
	}
	resp := doPatch(t, "/admin/orders/"+o.UID, patch)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", resp.StatusCode)
	}
	if got := decodeJSON[orderResponse](t, resp); len(got.Payments) != 0 {
		t.Fatalf("payments without createPayment: got %d, want 0", len(got.Payments))
	}

	patch["createPayment"] = true
	resp2 := doPatch(t, "/admin/orders/"+o.UID, patch)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("patch with createPayment: expected 200, got %d", resp2.StatusCode)
	}
	if got := decodeJSON[orderResponse](t, resp2); len(got.Payments) != 1 {
		t.Fatalf("payments with createPayment: got %d, want 1", len(got.Payments))
	}
}

func TestRemoveOrder_HardDeleteCascades(t *testing.T) {
	req := createOrderRequest{
		OrdNo:         "ORD-IT-HARD-1",
		ShopIdx:       1,
		SellerIdx:     7,
		BasicPrice:    "10000.00",
		OptionPrice:   "1000.00",
		DeliveryPrice: "2500.00",
		BoxDC:         "0.00",
		PayPrice:      "13500.00",
		BuyerName:     "Cascade Buyer",
		Items: []itemPayload{
			{
				ItemIdx:     904,
				ItemName:    "Cascade item",
				Quantity:    1,
				SalePrice:   "10000.00",
				OptionPrice: "1000.00",
				SupplyPrice: "0.00",
				TotalPrice:  "11000.00",
				Status:      "order_pending",
				Options: []childPayload{
					{OptionIdx: 5, Name: "Size M", Price: "1000.00", Quantity: 1},
				},
				Supplies: []childPayload{
					{SupplyIdx: 41, Name: "Dust bag", Price: "0.00", Quantity: 1},
				},
			},
		},
		Payment: &paymentPayload{RequestPrice: "13500.00", PaidPrice: "0.00"},
	}
	createResp := doPost(t, "/admin/orders", req)
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", createResp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, createResp)

	// The root and item idx survive the delete only in these variables; the
	// uid joins would be vacuously empty once the root row is gone.
	rootIdx := queryInt64(t, "SELECT idx FROM orders WHERE uid = $1", o.UID)
	itemIdx := queryInt64(t, "SELECT idx FROM order_items WHERE order_idx = $1", rootIdx)

	resp := doPost(t, "/admin/orders/remove", targetRequest{UID: o.UID, Hard: true})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", resp.StatusCode)
	}
	if res := decodeJSON[mutationResponse](t, resp); res.Affected != 1 {
		t.Fatalf("affected: got %d, want 1", res.Affected)
	}

	remaining := map[string]int64{
		"orders":         queryInt64(t, "SELECT COUNT(*) FROM orders WHERE idx = $1", rootIdx),
		"order_items":    queryInt64(t, "SELECT COUNT(*) FROM order_items WHERE order_idx = $1", rootIdx),
		"order_options":  queryInt64(t, "SELECT COUNT(*) FROM order_options WHERE item_idx = $1", itemIdx),
		"order_supplies": queryInt64(t, "SELECT COUNT(*) FROM order_supplies WHERE item_idx = $1", itemIdx),
		"order_payments": queryInt64(t, "SELECT COUNT(*) FROM order_payments WHERE order_idx = $1", rootIdx),
	}
	for table, n := range remaining {
		if n != 0 {
			t.Errorf("%s: %d rows left after hard delete", table, n)
		}
	}
}

func TestGetOrder_IncludesUserSnapshot(t *testing.T) {
	page := listOrders(t, "/admin/orders?q=ORD-20260901-0001")
	if len(page.Items) != 1 {
		t.Fatalf("seeded order lookup: got %d items", len(page.Items))
	}

	resp := doGet(t, "/admin/orders/"+page.Items[0].UID)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.User == nil {
		t.Fatal("user snapshot missing")
	}
	if o.User.Name != "Dana Kim" {
		t.Errorf("user name: got %q", o.User.Name)
	}
}

func TestUpdateStatus_BulkSkipsInvalidTargets(t *testing.T) {
	var uids []string
	for i := range 3 {
		uids = append(uids, createTestOrder(t, fmt.Sprintf("ORD-IT-STATUS-%d", i)).UID)
	}
	uids = append(uids, "00000000-0000-0000-0000-000000000000")

	resp := doPost(t, "/admin/orders/status", targetRequest{UIDs: uids, Status: "shipped"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decodeJSON[mutationResponse](t, resp)
	if res.Mode != "bulk" || res.Affected != 3 {
		t.Fatalf("result: %+v", res)
	}

	for _, uid := range uids[:3] {
		getResp := doGet(t, "/admin/orders/"+uid)
		o := decodeJSON[orderResponse](t, getResp)
		getResp.Body.Close()
		if o.OrderStatus != "shipped" {
			t.Errorf("order %s status: got %s", uid, o.OrderStatus)
		}
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-BADSTATUS-1")

	resp := doPost(t, "/admin/orders/status", targetRequest{UID: o.UID, Status: "teleported"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCancelStatus_RequestThenReset(t *testing.T) {
	o := createTestOrder(t, "ORD-IT-CANCEL-1")

	resp := doPost(t, "/admin/orders/cancel-status", targetRequest{
		UID:        o.UID,
		Status:     "requested",
		ReasonCode: "changed_mind",
		ReasonText: "wrong size",
	})
	res := decodeJSON[mutationResponse](t, resp)
	resp.Body.Close()

	if res.Order == nil {
		t.Fatal("single-target cancel should return the order")
	}
	if res.Order.CancelStatus != "requested" {
		t.Errorf("cancelStatus: got %s", res.Order.CancelStatus)
	}
	if res.Order.CancelRequestedAt == "" {
		t.Error("cancelRequestedAt not stamped")
	}
	if res.Order.CancelReasonCode != "changed_mind" {
		t.Errorf("reasonCode: got %s", res.Order.CancelReasonCode)
	}

	// Transitioning back to none clears all cancellation metadata.
	resp = doPost(t, "/admin/orders/cancel-status", targetRequest{UID: o.UID, Status: "none"})
	res = decodeJSON[mutationResponse](t, resp)
	resp.Body.Close()

	if res.Order == nil {
		t.Fatal("single-target cancel should return the order")
	}
	if res.Order.CancelStatus != "none" {
		t.Errorf("cancelStatus: got %s", res.Order.CancelStatus)
	}
	if res.Order.CancelRequestedAt != "" || res.Order.CancelReasonCode != "" || res.Order.CancelReasonText != "" {
		t.Errorf("metadata not cleared: %+v", res.Order)
	}
}

func TestMutation_NoTarget(t *testing.T) {
	resp := doPost(t, "/admin/orders/status", targetRequest{Status: "shipped"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func listOrders(t *testing.T, path string) listResponse {
	t.Helper()

	resp := doGet(t, path)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}

	return decodeJSON[listResponse](t, resp)
}
