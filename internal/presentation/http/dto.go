package httppresentation

import (
	"time"

	"github.com/shopspring/decimal"

	appPayment "github.com/candleshop/shop/internal/application/payment"
	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/money"
	"github.com/candleshop/shop/internal/domain/order"
)

// Requests

type createCategoryRequest struct {
	Name string `json:"name"`
}

type createProductRequest struct {
	Category    int64           `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StockQty    int             `json:"stock_qty"`
}

type setStockRequest struct {
	StockQty *int `json:"stock_qty"`
}

type lineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

type mergeCartRequest struct {
	Items []lineRequest `json:"items"`
}

type addressPayload struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	Items           []lineRequest  `json:"items"`
	ShippingAddress addressPayload `json:"shipping_address"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type createIntentRequest struct {
	OrderID         int64          `json:"order_id"`
	ShippingAddress addressPayload `json:"shipping_address"`
}

func toLines(in []lineRequest) []catalog.Line {
	out := make([]catalog.Line, len(in))
	for i, l := range in {
		out[i] = catalog.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

func (a addressPayload) toDomain() order.Address {
	return order.Address{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func addressFromDomain(a order.Address) addressPayload {
	return addressPayload{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Responses. Money is rendered as a string with two decimals.

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toCategory(c *catalog.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

type productResponse struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	StockQty    int       `json:"stock_qty"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProduct(p *catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       money.Format(p.Price),
		StockQty:    p.StockQty,
		InStock:     p.Available,
		CreatedAt:   p.CreatedAt,
	}
}

type productSummaryResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Price   string `json:"price"`
	InStock bool   `json:"in_stock"`
}

type cartItemResponse struct {
	ID        int64                  `json:"id"`
	ProductID int64                  `json:"product_id"`
	Product   productSummaryResponse `json:"product"`
	Quantity  int                    `json:"quantity"`
	LineTotal string                 `json:"line_total"`
}

type cartResponse struct {
	ID        int64              `json:"id"`
	Items     []cartItemResponse `json:"items"`
	Subtotal  string             `json:"subtotal"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toCart(c *cart.Cart) cartResponse {
	out := cartResponse{ID: c.ID, Items: make([]cartItemResponse, 0, len(c.Items)), UpdatedAt: c.UpdatedAt}
	subtotal := decimal.Zero
	for _, it := range c.Items {
		line := it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		out.Items = append(out.Items, cartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Product: productSummaryResponse{
				ID:      it.Product.ID,
				Name:    it.Product.Name,
				Slug:    it.Product.Slug,
				Price:   money.Format(it.Product.Price),
				InStock: it.Product.Available,
			},
			Quantity:  it.Quantity,
			LineTotal: money.Format(line),
		})
	}
	out.Subtotal = money.Format(subtotal)
	return out
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"user_id"`
	CustomerEmail   string              `json:"customer_email"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	Subtotal        string              `json:"subtotal_amount"`
	Shipping        string              `json:"shipping_amount"`
	Tax             string              `json:"tax_amount"`
	Total           string              `json:"total_amount"`
	ShippingAddress addressPayload      `json:"shipping_address"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toOrder(o *order.Order) orderResponse {
	out := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		CustomerEmail:   o.CustomerEmail,
		Status:          string(o.Status),
		Currency:        o.Currency,
		Subtotal:        money.Format(o.Subtotal),
		Shipping:        money.Format(o.Shipping),
		Tax:             money.Format(o.Tax),
		Total:           money.Format(o.Total),
		ShippingAddress: addressFromDomain(o.ShippingAddress),
		PaymentIntentID: o.PaymentIntentID,
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   money.Format(it.UnitPrice),
			Quantity:    it.Quantity,
			LineTotal:   money.Format(it.LineTotal()),
		})
	}
	return out
}

func toOrders(in []*order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(in))
	for _, o := range in {
		out = append(out, toOrder(o))
	}
	return out
}

type createIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	OrderID      int64  `json:"order_id"`
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
}

func toCreateIntent(r *appPayment.CreateIntentResult) createIntentResponse {
	return createIntentResponse{
		ClientSecret: r.ClientSecret,
		OrderID:      r.OrderID,
		Subtotal:     money.Format(r.Subtotal),
		Shipping:     money.Format(r.Shipping),
		Tax:          money.Format(r.Tax),
		Total:        money.Format(r.Total),
	}
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
}
