package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop-order-service/internal/domain/order"
)

// listResponse is one page of orders plus the request-time totals.
type listResponse struct {
	Items         []orderResponse `json:"items"`
	NextCursor    string          `json:"nextCursor,omitempty"`
	TotalAll      int64           `json:"totalAll"`
	TotalFiltered int64           `json:"totalFiltered"`
}

type orderResponse struct {
	UID       string `json:"uid"`
	OrdNo     string `json:"ordNo"`
	ShopIdx   int64  `json:"shopIdx"`
	SellerIdx int64  `json:"sellerIdx"`
	UserIdx   int64  `json:"userIdx,omitempty"`

	BasicPrice    decimal.Decimal `json:"basicPrice"`
	OptionPrice   decimal.Decimal `json:"optionPrice"`
	DeliveryPrice decimal.Decimal `json:"deliveryPrice"`
	BoxDC         decimal.Decimal `json:"boxDc"`
	PayPrice      decimal.Decimal `json:"payPrice"`
	StockCount    int             `json:"stockCount"`
	Memo          string          `json:"memo,omitempty"`

	PayStatus    string `json:"payStatus"`
	OrderStatus  string `json:"orderStatus"`
	CancelStatus string `json:"cancelStatus"`

	CancelRequestedBy string     `json:"cancelRequestedBy,omitempty"`
	CancelRequestedAt *time.Time `json:"cancelRequestedAt,omitempty"`
	CancelReasonCode  string     `json:"cancelReasonCode,omitempty"`
	CancelReasonText  string     `json:"cancelReasonText,omitempty"`
	CancelRejectText  string     `json:"cancelRejectText,omitempty"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail,omitempty"`
	BuyerPhone string `json:"buyerPhone,omitempty"`
	BuyerZip   string `json:"buyerZip,omitempty"`
	BuyerAddr1 string `json:"buyerAddr1,omitempty"`
	BuyerAddr2 string `json:"buyerAddr2,omitempty"`

	ReceiverName  string `json:"receiverName,omitempty"`
	ReceiverPhone string `json:"receiverPhone,omitempty"`
	ReceiverZip   string `json:"receiverZip,omitempty"`
	ReceiverAddr1 string `json:"receiverAddr1,omitempty"`
	ReceiverAddr2 string `json:"receiverAddr2,omitempty"`

	PayerName string     `json:"payerName,omitempty"`
	PayMethod string     `json:"payMethod,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items    []itemResponse    `json:"orderItems,omitempty"`
	Payments []paymentResponse `json:"payments,omitempty"`
	User     *userResponse     `json:"user,omitempty"`
}

type itemResponse struct {
	UID      string `json:"uid"`
	ItemIdx  int64  `json:"itemIdx"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`

	SalePrice   decimal.Decimal `json:"salePrice"`
	OptionPrice decimal.Decimal `json:"optionPrice"`
	SupplyPrice decimal.Decimal `json:"supplyPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status,omitempty"`

	Options  []optionResponse `json:"options,omitempty"`
	Supplies []supplyResponse `json:"supplies,omitempty"`
}

type optionResponse struct {
	UID       string          `json:"uid"`
	OptionIdx int64           `json:"optionIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type supplyResponse struct {
	UID       string          `json:"uid"`
	SupplyIdx int64           `json:"supplyIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type paymentResponse struct {
	UID string `json:"uid"`

	RequestPrice   decimal.Decimal `json:"requestPrice"`
	PaidPrice      decimal.Decimal `json:"paidPrice"`
	CancelledPrice decimal.Decimal `json:"cancelledPrice"`

	BuyerName  string `json:"buyerName,omitempty"`
	BuyerEmail string `json:"buyerEmail,omitempty"`
	BuyerPhone string `json:"buyerPhone,omitempty"`

	CardName      string `json:"cardName,omitempty"`
	CardNo        string `json:"cardNo,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	GatewayTID    string `json:"gatewayTid,omitempty"`
	GatewayMID    string `json:"gatewayMid,omitempty"`
	GatewayStatus string `json:"gatewayStatus,omitempty"`

	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

type userResponse struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type mutationResponse struct {
	Mode     string `json:"mode"`
	Affected int64  `json:"affected"`
}

type cancelResponse struct {
	mutationResponse
	Order *orderResponse `json:"order,omitempty"`
}

type itemPayload struct {
	UID      string `json:"uid,omitempty"`
	ItemIdx  int64  `json:"itemIdx"`
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`

	SalePrice   decimal.Decimal `json:"salePrice"`
	OptionPrice decimal.Decimal `json:"optionPrice"`
	SupplyPrice decimal.Decimal `json:"supplyPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status"`

	Options  []optionPayload `json:"options"`
	Supplies []supplyPayload `json:"supplies"`
}

type optionPayload struct {
	OptionIdx int64           `json:"optionIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type supplyPayload struct {
	SupplyIdx int64           `json:"supplyIdx"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type paymentPayload struct {
	RequestPrice   decimal.Decimal `json:"requestPrice"`
	PaidPrice      decimal.Decimal `json:"paidPrice"`
	CancelledPrice decimal.Decimal `json:"cancelledPrice"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
	BuyerPhone string `json:"buyerPhone"`

	CardName      string `json:"cardName"`
	CardNo        string `json:"cardNo"`
	BankName      string `json:"bankName"`
	GatewayTID    string `json:"gatewayTid"`
	GatewayMID    string `json:"gatewayMid"`
	GatewayStatus string `json:"gatewayStatus"`

	ApprovedAt  *time.Time `json:"approvedAt"`
	CancelledAt *time.Time `json:"cancelledAt"`
}

type createOrderRequest struct {
	OrdNo     string `json:"ordNo"`
	ShopIdx   int64  `json:"shopIdx"`
	SellerIdx int64  `json:"sellerIdx"`
	UserIdx   int64  `json:"userIdx"`

	BasicPrice    decimal.Decimal `json:"basicPrice"`
	OptionPrice   decimal.Decimal `json:"optionPrice"`
	DeliveryPrice decimal.Decimal `json:"deliveryPrice"`
	BoxDC         decimal.Decimal `json:"boxDc"`
	PayPrice      decimal.Decimal `json:"payPrice"`
	StockCount    int             `json:"stockCount"`
	Memo          string          `json:"memo"`

	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
	BuyerPhone string `json:"buyerPhone"`
	BuyerZip   string `json:"buyerZip"`
	BuyerAddr1 string `json:"buyerAddr1"`
	BuyerAddr2 string `json:"buyerAddr2"`

	ReceiverName  string `json:"receiverName"`
	ReceiverPhone string `json:"receiverPhone"`
	ReceiverZip   string `json:"receiverZip"`
	ReceiverAddr1 string `json:"receiverAddr1"`
	ReceiverAddr2 string `json:"receiverAddr2"`

	PayerName string `json:"payerName"`
	PayMethod string `json:"payMethod"`

	Items   []itemPayload   `json:"orderItems"`
	Payment *paymentPayload `json:"payment"`
}

type updateOrderRequest struct {
	OrdNo         *string          `json:"ordNo"`
	BasicPrice    *decimal.Decimal `json:"basicPrice"`
	OptionPrice   *decimal.Decimal `json:"optionPrice"`
	DeliveryPrice *decimal.Decimal `json:"deliveryPrice"`
	BoxDC         *decimal.Decimal `json:"boxDc"`
	PayPrice      *decimal.Decimal `json:"payPrice"`
	StockCount    *int             `json:"stockCount"`
	Memo          *string          `json:"memo"`
	PayStatus     *string          `json:"payStatus"`

	BuyerName  *string `json:"buyerName"`
	BuyerEmail *string `json:"buyerEmail"`
	BuyerPhone *string `json:"buyerPhone"`
	BuyerZip   *string `json:"buyerZip"`
	BuyerAddr1 *string `json:"buyerAddr1"`
	BuyerAddr2 *string `json:"buyerAddr2"`

	ReceiverName  *string `json:"receiverName"`
	ReceiverPhone *string `json:"receiverPhone"`
	ReceiverZip   *string `json:"receiverZip"`
	ReceiverAddr1 *string `json:"receiverAddr1"`
	ReceiverAddr2 *string `json:"receiverAddr2"`

	PayerName *string    `json:"payerName"`
	PayMethod *string    `json:"payMethod"`
	PaidAt    *time.Time `json:"paidAt"`

	DeleteItemUIDs []string        `json:"deleteItemUids"`
	Items          []itemPayload   `json:"orderItems"`
	Payment        *paymentPayload `json:"payment"`
	CreatePayment  bool            `json:"createPayment"`
}

type removeOrdersRequest struct {
	UID  string   `json:"uid"`
	UIDs []string `json:"uids"`
	Hard bool     `json:"hard"`
}

type updateStatusRequest struct {
	UID    string   `json:"uid"`
	UIDs   []string `json:"uids"`
	Status string   `json:"status"`
}

type updateCancelStatusRequest struct {
	UID        string   `json:"uid"`
	UIDs       []string `json:"uids"`
	Status     string   `json:"status"`
	ReasonCode string   `json:"reasonCode"`
	ReasonText string   `json:"reasonText"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	res, err := h.orders.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// items is always present in the body, even when the page is empty.
	out := listResponse{
		Items:         make([]orderResponse, 0, len(res.Items)),
		NextCursor:    res.NextCursor,
		TotalAll:      res.TotalAll,
		TotalFiltered: res.TotalFiltered,
	}
	for i := range res.Items {
		out.Items = append(out.Items, toOrderResponse(&res.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateInput{
		OrdNo:     req.OrdNo,
		ShopIdx:   req.ShopIdx,
		SellerIdx: req.SellerIdx,
		UserIdx:   req.UserIdx,

		BasicPrice:    req.BasicPrice,
		OptionPrice:   req.OptionPrice,
		DeliveryPrice: req.DeliveryPrice,
		BoxDC:         req.BoxDC,
		PayPrice:      req.PayPrice,
		StockCount:    req.StockCount,
		Memo:          req.Memo,

		BuyerName:  req.BuyerName,
		BuyerEmail: req.BuyerEmail,
		BuyerPhone: req.BuyerPhone,
		BuyerZip:   req.BuyerZip,
		BuyerAddr1: req.BuyerAddr1,
		BuyerAddr2: req.BuyerAddr2,

		ReceiverName:  req.ReceiverName,
		ReceiverPhone: req.ReceiverPhone,
		ReceiverZip:   req.ReceiverZip,
		ReceiverAddr1: req.ReceiverAddr1,
		ReceiverAddr2: req.ReceiverAddr2,

		PayerName: req.PayerName,
		PayMethod: req.PayMethod,

		Items:   itemChanges(req.Items),
		Payment: paymentChange(req.Payment),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	in := order.UpdateInput{
		UID: r.PathValue("uid"),
		Root: order.RootPatch{
			OrdNo:         req.OrdNo,
			BasicPrice:    req.BasicPrice,
			OptionPrice:   req.OptionPrice,
			DeliveryPrice: req.DeliveryPrice,
			BoxDC:         req.BoxDC,
			PayPrice:      req.PayPrice,
			StockCount:    req.StockCount,
			Memo:          req.Memo,

			BuyerName:  req.BuyerName,
			BuyerEmail: req.BuyerEmail,
			BuyerPhone: req.BuyerPhone,
			BuyerZip:   req.BuyerZip,
			BuyerAddr1: req.BuyerAddr1,
			BuyerAddr2: req.BuyerAddr2,

			ReceiverName:  req.ReceiverName,
			ReceiverPhone: req.ReceiverPhone,
			ReceiverZip:   req.ReceiverZip,
			ReceiverAddr1: req.ReceiverAddr1,
			ReceiverAddr2: req.ReceiverAddr2,

			PayerName: req.PayerName,
			PayMethod: req.PayMethod,
			PaidAt:    req.PaidAt,
		},
		DeleteItemUIDs: req.DeleteItemUIDs,
		Items:          itemChanges(req.Items),
		Payment:        paymentChange(req.Payment),
		CreatePayment:  req.CreatePayment,
	}
	if req.PayStatus != nil {
		ps := order.PayStatus(*req.PayStatus)
		in.Root.PayStatus = &ps
	}

	o, err := h.orders.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) removeOrders(w http.ResponseWriter, r *http.Request) {
	var req removeOrdersRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	res, err := h.orders.Remove(r.Context(), order.RemoveInput{
		UID:  req.UID,
		UIDs: req.UIDs,
		Hard: req.Hard,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Mode:     string(res.Mode),
		Affected: res.Affected,
	})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	res, err := h.orders.UpdateStatus(r.Context(), order.StatusInput{
		UID:    req.UID,
		UIDs:   req.UIDs,
		Status: order.Status(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Mode:     string(res.Mode),
		Affected: res.Affected,
	})
}

func (h *Handler) updateCancelStatus(w http.ResponseWriter, r *http.Request) {
	var req updateCancelStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	res, err := h.orders.UpdateCancelStatus(r.Context(), order.CancelInput{
		UID:        req.UID,
		UIDs:       req.UIDs,
		Status:     order.CancelStatus(req.Status),
		ReasonCode: req.ReasonCode,
		ReasonText: req.ReasonText,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := cancelResponse{
		mutationResponse: mutationResponse{
			Mode:     string(res.Mode),
			Affected: res.Affected,
		},
	}
	if res.Order != nil {
		o := toOrderResponse(res.Order)
		out.Order = &o
	}

	writeJSON(w, http.StatusOK, out)
}

// parseListParams reads the listing query string. Unparseable numeric,
// boolean or timestamp values are rejected; allow-list validation of sort
// and date fields happens in the service.
func parseListParams(r *http.Request) (order.ListParams, error) {
	q := r.URL.Query()

	p := order.ListParams{
		SortBy: order.SortField(q.Get("sortBy")),
		Order:  order.Direction(q.Get("order")),
		Cursor: q.Get("cursor"),
		Filter: order.Filter{
			Query:      q.Get("q"),
			BuyerName:  q.Get("buyerName"),
			BuyerEmail: q.Get("buyerEmail"),
			BuyerPhone: q.Get("buyerPhone"),
			OrdNo:      q.Get("ordNo"),
			DateField:  order.DateField(q.Get("dateField")),
		},
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return order.ListParams{}, errInvalidParam("limit", v)
		}
		p.Limit = n
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return order.ListParams{}, errInvalidParam("startDate", v)
		}
		p.Filter.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return order.ListParams{}, errInvalidParam("endDate", v)
		}
		p.Filter.EndDate = &t
	}
	if v := q.Get("isUse"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return order.ListParams{}, errInvalidParam("isUse", v)
		}
		p.Filter.IsUse = &b
	}
	if v := q.Get("isVisible"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return order.ListParams{}, errInvalidParam("isVisible", v)
		}
		p.Filter.IsVisible = &b
	}

	return p, nil
}

func itemChanges(items []itemPayload) []order.ItemChange {
	if len(items) == 0 {
		return nil
	}
	out := make([]order.ItemChange, len(items))
	for i, it := range items {
		options := make([]order.Option, len(it.Options))
		for j, op := range it.Options {
			options[j] = order.Option{
				OptionIdx: op.OptionIdx,
				Name:      op.Name,
				Price:     op.Price,
				Quantity:  op.Quantity,
			}
		}
		supplies := make([]order.Supply, len(it.Supplies))
		for j, sp := range it.Supplies {
			supplies[j] = order.Supply{
				SupplyIdx: sp.SupplyIdx,
				Name:      sp.Name,
				Price:     sp.Price,
				Quantity:  sp.Quantity,
			}
		}
		out[i] = order.ItemChange{
			UID:         it.UID,
			ItemIdx:     it.ItemIdx,
			ItemName:    it.ItemName,
			Quantity:    it.Quantity,
			SalePrice:   it.SalePrice,
			OptionPrice: it.OptionPrice,
			SupplyPrice: it.SupplyPrice,
			TotalPrice:  it.TotalPrice,
			Status:      it.Status,
			Options:     options,
			Supplies:    supplies,
		}
	}
	return out
}

func paymentChange(p *paymentPayload) *order.PaymentChange {
	if p == nil {
		return nil
	}
	return &order.PaymentChange{
		RequestPrice:   p.RequestPrice,
		PaidPrice:      p.PaidPrice,
		CancelledPrice: p.CancelledPrice,
		BuyerName:      p.BuyerName,
		BuyerEmail:     p.BuyerEmail,
		BuyerPhone:     p.BuyerPhone,
		CardName:       p.CardName,
		CardNo:         p.CardNo,
		BankName:       p.BankName,
		GatewayTID:     p.GatewayTID,
		GatewayMID:     p.GatewayMID,
		GatewayStatus:  p.GatewayStatus,
		ApprovedAt:     p.ApprovedAt,
		CancelledAt:    p.CancelledAt,
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	out := orderResponse{
		UID:       o.UID,
		OrdNo:     o.OrdNo,
		ShopIdx:   o.ShopIdx,
		SellerIdx: o.SellerIdx,
		UserIdx:   o.UserIdx,

		BasicPrice:    o.BasicPrice,
		OptionPrice:   o.OptionPrice,
		DeliveryPrice: o.DeliveryPrice,
		BoxDC:         o.BoxDC,
		PayPrice:      o.PayPrice,
		StockCount:    o.StockCount,
		Memo:          o.Memo,

		PayStatus:    string(o.PayStatus),
		OrderStatus:  string(o.Status),
		CancelStatus: string(o.CancelStatus),

		CancelRequestedBy: o.CancelRequestedBy,
		CancelRequestedAt: o.CancelRequestedAt,
		CancelReasonCode:  o.CancelReasonCode,
		CancelReasonText:  o.CancelReasonText,
		CancelRejectText:  o.CancelRejectText,

		BuyerName:  o.BuyerName,
		BuyerEmail: o.BuyerEmail,
		BuyerPhone: o.BuyerPhone,
		BuyerZip:   o.BuyerZip,
		BuyerAddr1: o.BuyerAddr1,
		BuyerAddr2: o.BuyerAddr2,

		ReceiverName:  o.ReceiverName,
		ReceiverPhone: o.ReceiverPhone,
		ReceiverZip:   o.ReceiverZip,
		ReceiverAddr1: o.ReceiverAddr1,
		ReceiverAddr2: o.ReceiverAddr2,

		PayerName: o.PayerName,
		PayMethod: o.PayMethod,
		PaidAt:    o.PaidAt,

		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	for i := range o.Items {
		it := &o.Items[i]
		ir := itemResponse{
			UID:         it.UID,
			ItemIdx:     it.ItemIdx,
			ItemName:    it.ItemName,
			Quantity:    it.Quantity,
			SalePrice:   it.SalePrice,
			OptionPrice: it.OptionPrice,
			SupplyPrice: it.SupplyPrice,
			TotalPrice:  it.TotalPrice,
			Status:      it.Status,
		}
		for _, op := range it.Options {
			ir.Options = append(ir.Options, optionResponse{
				UID:       op.UID,
				OptionIdx: op.OptionIdx,
				Name:      op.Name,
				Price:     op.Price,
				Quantity:  op.Quantity,
			})
		}
		for _, sp := range it.Supplies {
			ir.Supplies = append(ir.Supplies, supplyResponse{
				UID:       sp.UID,
				SupplyIdx: sp.SupplyIdx,
				Name:      sp.Name,
				Price:     sp.Price,
				Quantity:  sp.Quantity,
			})
		}
		out.Items = append(out.Items, ir)
	}

	for _, p := range o.Payments {
		out.Payments = append(out.Payments, paymentResponse{
			UID:            p.UID,
			RequestPrice:   p.RequestPrice,
			PaidPrice:      p.PaidPrice,
			CancelledPrice: p.CancelledPrice,
			BuyerName:      p.BuyerName,
			BuyerEmail:     p.BuyerEmail,
			BuyerPhone:     p.BuyerPhone,
			CardName:       p.CardName,
			CardNo:         p.CardNo,
			BankName:       p.BankName,
			GatewayTID:     p.GatewayTID,
			GatewayMID:     p.GatewayMID,
			GatewayStatus:  p.GatewayStatus,
			ApprovedAt:     p.ApprovedAt,
			CancelledAt:    p.CancelledAt,
		})
	}

	if o.User != nil {
		out.User = &userResponse{
			UID:   o.User.UID,
			Name:  o.User.Name,
			Email: o.User.Email,
			Phone: o.User.Phone,
		}
	}

	return out
}

type invalidParamError struct {
	name, value string
}

func (e *invalidParamError) Error() string {
	return "invalid query parameter " + e.name + ": " + strconv.Quote(e.value)
}

func errInvalidParam(name, value string) error {
	return &invalidParamError{name: name, value: value}
}
