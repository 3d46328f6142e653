package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"invoice-service/internal/models"
)

// internalServiceName identifies this service to its peers
const internalServiceName = "invoice-service"

// ErrOrderNotFound is returned when the orders service has no such order
var ErrOrderNotFound = errors.New("order not found")

// OrdersClient defines the interface for reading orders from orders-service
type OrdersClient interface {
	GetOrderSnapshot(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.OrderSnapshot, error)
}

// orderResponse mirrors the order JSON returned by orders-service
type orderResponse struct {
	ID             uuid.UUID       `json:"id"`
	DisplayID      int64           `json:"displayId"`
	OrderNumber    string          `json:"orderNumber"`
	Currency       string          `json:"currency"`
	Subtotal       float64         `json:"subtotal"`
	TaxAmount      float64         `json:"taxAmount"`
	ShippingCost   float64         `json:"shippingCost"`
	DiscountAmount float64         `json:"discountAmount"`
	Total          float64         `json:"total"`
	CreatedAt      time.Time       `json:"createdAt"`
	Items          []orderItem     `json:"items"`
	Customer       *orderCustomer  `json:"customer"`
	Shipping       *orderShipping  `json:"shipping"`
	BillingAddress *models.Address `json:"billingAddress"`
}

type orderItem struct {
	ProductName string  `json:"productName"`
	SKU         string  `json:"sku"`
	HSNCode     string  `json:"hsnCode"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
	TaxAmount   float64 `json:"taxAmount"`
}

type orderCustomer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type orderShipping struct {
	Method      string  `json:"method"`
	Cost        float64 `json:"cost"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	StateCode   string  `json:"stateCode"`
	PostalCode  string  `json:"postalCode"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
}

type ordersClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOrdersClient creates a new orders service client
func NewOrdersClient(baseURL string) OrdersClient {
	return &ordersClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetOrderSnapshot fetches an order and maps it onto the invoice input model
func (c *ordersClient) GetOrderSnapshot(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/orders/%s", c.baseURL, orderID.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("X-Tenant-ID", tenantID)
	httpReq.Header.Set("X-Internal-Service", internalServiceName)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to orders service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("orders service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	return order.toSnapshot(), nil
}

func (o *orderResponse) toSnapshot() *models.OrderSnapshot {
	snap := &models.OrderSnapshot{
		ID:            o.ID,
		DisplayID:     o.DisplayID,
		OrderNumber:   o.OrderNumber,
		CreatedAt:     o.CreatedAt,
		CurrencyCode:  o.Currency,
		Subtotal:      o.Subtotal,
		TaxTotal:      o.TaxAmount,
		ShippingTotal: o.ShippingCost,
		DiscountTotal: o.DiscountAmount,
		Total:         o.Total,
		Items:         make([]models.LineItem, 0, len(o.Items)),
	}
	if snap.DisplayID == 0 {
		snap.DisplayID = trailingNumber(o.OrderNumber)
	}

	for _, item := range o.Items {
		snap.Items = append(snap.Items, models.LineItem{
			Title:     item.ProductName,
			SKU:       item.SKU,
			HSNCode:   item.HSNCode,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.TotalPrice,
			Total:     item.TotalPrice + item.TaxAmount,
		})
	}

	if o.Customer != nil {
		snap.Email = o.Customer.Email
	}

	if o.Shipping != nil {
		if o.Shipping.Method != "" || o.Shipping.Cost != 0 {
			snap.ShippingMethods = []models.ShippingMethod{{Name: o.Shipping.Method, Total: o.Shipping.Cost}}
		}
		addr := &models.Address{
			Address1:    o.Shipping.Street,
			City:        o.Shipping.City,
			Province:    o.Shipping.State,
			StateCode:   o.Shipping.StateCode,
			PostalCode:  o.Shipping.PostalCode,
			CountryCode: o.Shipping.CountryCode,
		}
		if addr.CountryCode == "" {
			addr.CountryCode = o.Shipping.Country
		}
		if o.Customer != nil {
			addr.FirstName = o.Customer.FirstName
			addr.LastName = o.Customer.LastName
			addr.Phone = o.Customer.Phone
		}
		snap.ShippingAddress = addr
	}

	snap.BillingAddress = o.BillingAddress
	return snap
}

// trailingNumber extracts the numeric suffix of an order number such as ORD-20240101-0042.
func trailingNumber(orderNumber string) int64 {
	end := len(orderNumber)
	start := end
	for start > 0 && unicode.IsDigit(rune(orderNumber[start-1])) {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.ParseInt(orderNumber[start:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
