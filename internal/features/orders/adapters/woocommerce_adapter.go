package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reverse-logistics/internal/core/config"
	"reverse-logistics/internal/core/httpclient"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WooCommerceAdapter implements the OrderProvider interface using the WooCommerce REST API.
type WooCommerceAdapter struct {
	client *http.Client
	config config.WooCommerceConfig
	log    *zap.Logger
}

// NewWooCommerceAdapter creates a new instance of WooCommerceAdapter.
func NewWooCommerceAdapter(cfg config.WooCommerceConfig) *WooCommerceAdapter {
	return &WooCommerceAdapter{
		client: httpclient.NewClient(10 * time.Second),
		config: cfg,
		log:    logger.Named("woocommerce"),
	}
}

// GetOrder fetches an order from WooCommerce and maps it to the domain entity.
func (a *WooCommerceAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var wcOrder woocommerceOrder
	err := a.get(ctx, "/orders/"+url.PathEscape(orderID), nil, &wcOrder)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return a.mapToDomain(ctx, wcOrder), nil
}

// SearchOrders returns the orders WooCommerce matches for term. Tracking
// numbers are only looked up in order metadata; notes are not fetched.
func (a *WooCommerceAdapter) SearchOrders(ctx context.Context, term string, limit int) ([]domain.Order, error) {
	q := url.Values{}
	q.Set("search", term)
	q.Set("per_page", strconv.Itoa(limit))

	var wcOrders []woocommerceOrder
	if err := a.get(ctx, "/orders", q, &wcOrders); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(wcOrders))
	for _, o := range wcOrders {
		order := a.toDomain(o, extractTrackingInfo(o))
		out = append(out, *order)
	}
	return out, nil
}

// HealthCheck verifies that the WooCommerce API is reachable and credentials are valid.
func (a *WooCommerceAdapter) HealthCheck(ctx context.Context) error {
	q := url.Values{}
	q.Set("per_page", "1")
	if err := a.get(ctx, "/orders", q, nil); err != nil {
		return fmt.Errorf("woocommerce health check failed: %w", err)
	}
	return nil
}

func (a *WooCommerceAdapter) get(ctx context.Context, path string, query url.Values, out any) error {
	u := strings.TrimRight(a.config.URL, "/") + "/wp-json/wc/v3" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &httpclient.StatusError{StatusCode: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// mapToDomain converts a raw WooCommerce order, falling back to the order
// notes endpoint when no tracking is found in the order itself.
func (a *WooCommerceAdapter) mapToDomain(ctx context.Context, wcOrder woocommerceOrder) *domain.Order {
	tracking := extractTrackingInfo(wcOrder)
	if len(tracking) == 0 {
		tracking = a.getTrackingFromNotes(ctx, strconv.Itoa(wcOrder.ID))
	}
	return a.toDomain(wcOrder, tracking)
}

func (a *WooCommerceAdapter) toDomain(wcOrder woocommerceOrder, tracking []domain.TrackingInfo) *domain.Order {
	customerID := "guest:" + strings.ToLower(wcOrder.Billing.Email)
	if wcOrder.CustomerID > 0 {
		customerID = strconv.Itoa(wcOrder.CustomerID)
	}

	return &domain.Order{
		ID:            strconv.Itoa(wcOrder.ID),
		CompanyID:     a.config.CompanyID,
		CustomerID:    customerID,
		Status:        mapStatus(wcOrder.Status, tracking),
		FirstName:     wcOrder.Billing.FirstName,
		LastName:      wcOrder.Billing.LastName,
		Address:       wcOrder.Shipping.Address1,
		City:          wcOrder.Shipping.City,
		State:         wcOrder.Shipping.State,
		Email:         wcOrder.Billing.Email,
		Phone:         wcOrder.Billing.Phone,
		PaymentMethod: wcOrder.PaymentMethodTitle,
		Currency:      wcOrder.Currency,
		Total:         wcOrder.Total,
		Tracking:      tracking,
		CreatedAt:     time.Time(wcOrder.DateCreated),
		Items:         mapItems(wcOrder.LineItems, wcOrder.FeeLines),
	}
}

// mapStatus determines the domain OrderStatus based on WooCommerce status and tracking info.
func mapStatus(status string, tracking []domain.TrackingInfo) domain.OrderStatus {
	if len(tracking) > 0 {
		return domain.OrderStatusShipped
	}

	switch strings.ToLower(status) {
	case "completed":
		return domain.OrderStatusShipped
	case "cancelled", "refunded", "failed":
		return domain.OrderStatusCancelled
	case "pending", "processing", "on-hold":
		return domain.OrderStatusCreated
	default:
		return domain.OrderStatusPending
	}
}

var (
	trackingNumberKeys   = []string{"Tracking Number", "tracking_number", "_tracking_number", "wc_shipment_tracking_number"}
	trackingProviderKeys = []string{"Tracking Company", "tracking_company", "_tracking_company", "tracking_provider"}
)

// extractTrackingInfo finds tracking in the shipping lines, the shipment
// tracking plugin data, legacy order metadata and finally the customer note.
func extractTrackingInfo(order woocommerceOrder) []domain.TrackingInfo {
	var tracking []domain.TrackingInfo

	for _, line := range order.ShippingLines {
		if t, ok := trackingFromMeta(line.MetaData); ok {
			tracking = append(tracking, t)
		}
	}
	if len(tracking) > 0 {
		return tracking
	}

	for _, meta := range order.MetaData {
		if meta.Key == "_wc_shipment_tracking_items" {
			if items, err := parseTrackingItems(meta.Value); err == nil && len(items) > 0 {
				return items
			}
		}
	}

	if t, ok := trackingFromMeta(order.MetaData); ok {
		return []domain.TrackingInfo{t}
	}

	return extractTrackingFromNotes(order.CustomerNote)
}

func trackingFromMeta(meta []wcMetaData) (domain.TrackingInfo, bool) {
	var t domain.TrackingInfo
	for _, m := range meta {
		val, ok := m.Value.(string)
		if !ok || val == "" {
			continue
		}
		switch {
		case contains(trackingNumberKeys, m.Key):
			t.TrackingNumber = val
		case contains(trackingProviderKeys, m.Key):
			t.TrackingProvider = normalizeCarrierName(val)
		}
	}
	return t, t.TrackingNumber != "" || t.TrackingProvider != ""
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// parseTrackingItems parses the WooCommerce Shipment Tracking plugin structure.
func parseTrackingItems(value any) ([]domain.TrackingInfo, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var wcItems []wcTrackingItem
	if err := json.Unmarshal(raw, &wcItems); err != nil {
		return nil, err
	}

	var tracking []domain.TrackingInfo
	for _, item := range wcItems {
		tracking = append(tracking, domain.TrackingInfo{
			TrackingProvider: normalizeCarrierName(item.TrackingProvider),
			TrackingNumber:   item.TrackingNumber,
		})
	}
	return tracking, nil
}

// getTrackingFromNotes fetches the order notes and extracts tracking from
// the customer-visible ones. Failures are logged and yield no tracking.
func (a *WooCommerceAdapter) getTrackingFromNotes(ctx context.Context, orderID string) []domain.TrackingInfo {
	var notes []wcOrderNote
	if err := a.get(ctx, "/orders/"+url.PathEscape(orderID)+"/notes", nil, &notes); err != nil {
		a.log.Warn("Failed to fetch order notes", zap.String("order_id", orderID), zap.Error(err))
		return nil
	}

	for _, note := range notes {
		if note.CustomerNote && note.Note != "" {
			if tracking := extractTrackingFromNotes(note.Note); len(tracking) > 0 {
				return tracking
			}
		}
	}
	return nil
}

// notePattern matches "No de guía: {number} Paquetería: {carrier}".
var notePattern = regexp.MustCompile(`(?i)no\s+de\s+gu[ií]a:\s*(\S+).*?paqueter[ií]a:\s*(\S+)`)

// extractTrackingFromNotes parses a note to extract tracking information.
func extractTrackingFromNotes(notes string) []domain.TrackingInfo {
	if notes == "" {
		return nil
	}

	matches := notePattern.FindStringSubmatch(notes)
	if len(matches) < 3 {
		return nil
	}

	trackingNumber := strings.TrimSpace(matches[1])
	carrier := normalizeCarrierName(matches[2])
	if trackingNumber == "" || carrier == "" {
		return nil
	}

	return []domain.TrackingInfo{{TrackingNumber: trackingNumber, TrackingProvider: carrier}}
}

// normalizeCarrierName converts carrier names to the tracking provider keys.
func normalizeCarrierName(carrier string) string {
	carrier = strings.ToLower(strings.TrimSpace(carrier))
	if carrier == "" {
		return ""
	}

	switch {
	case strings.Contains(carrier, "servientrega"):
		return "servientrega_co"
	case strings.Contains(carrier, "coordinadora"):
		return "coordinadora_co"
	case strings.Contains(carrier, "interrapidisimo") || strings.Contains(carrier, "inter"):
		return "interrapidisimo_co"
	case strings.HasSuffix(carrier, "_co"):
		return carrier
	default:
		return carrier + "_co"
	}
}

// mapItems converts WooCommerce line items and fee lines to domain OrderItems.
func mapItems(wcItems []wcLineItem, feeLines []wcFeeLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(wcItems)+len(feeLines))

	for _, item := range wcItems {
		var productID string
		if item.ProductID > 0 {
			productID = strconv.Itoa(item.ProductID)
		}
		items = append(items, domain.OrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			SKU:       item.Sku,
			Name:      item.Name,
			Picture:   item.Image.Src,
			UnitPrice: item.Price,
		})
	}

	for _, fee := range feeLines {
		items = append(items, domain.OrderItem{
			Quantity:  1,
			Name:      fee.Name,
			UnitPrice: fee.Total,
		})
	}

	return items
}

// woocommerceOrder represents the JSON structure of an order from WooCommerce API.
type woocommerceOrder struct {
	ID                 int              `json:"id"`
	CustomerID         int              `json:"customer_id"`
	Status             string           `json:"status"`
	Currency           string           `json:"currency"`
	Total              decimal.Decimal  `json:"total"`
	DateCreated        wcTime           `json:"date_created"`
	PaymentMethodTitle string           `json:"payment_method_title"`
	CustomerNote       string           `json:"customer_note"`
	Billing            wcBilling        `json:"billing"`
	Shipping           wcShipping       `json:"shipping"`
	LineItems          []wcLineItem     `json:"line_items"`
	FeeLines           []wcFeeLine      `json:"fee_lines"`
	ShippingLines      []wcShippingLine `json:"shipping_lines"`
	MetaData           []wcMetaData     `json:"meta_data"`
}

// wcMetaData is a key-value pair whose value can be of any JSON type.
type wcMetaData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type wcOrderNote struct {
	ID           int    `json:"id"`
	Note         string `json:"note"`
	CustomerNote bool   `json:"customer_note"`
}

// wcTrackingItem is a single entry from the Shipment Tracking plugin.
type wcTrackingItem struct {
	TrackingProvider string `json:"tracking_provider"`
	TrackingNumber   string `json:"tracking_number"`
}

type wcBilling struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type wcShipping struct {
	Address1 string `json:"address_1"`
	City     string `json:"city"`
	State    string `json:"state"`
}

type wcLineItem struct {
	ID        int             `json:"id"`
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Sku       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     wcImage         `json:"image"`
}

// wcFeeLine is a fee or additional product line item.
type wcFeeLine struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// wcShippingLine is a shipping method with tracking metadata.
type wcShippingLine struct {
	MethodID    string       `json:"method_id"`
	MethodTitle string       `json:"method_title"`
	MetaData    []wcMetaData `json:"meta_data"`
}

type wcImage struct {
	Src string `json:"src"`
}

// wcTime handles WooCommerce's zone-less date format.
type wcTime time.Time

// UnmarshalJSON parses "2018-12-19T14:48:25", falling back to RFC 3339.
// Unparseable dates decode as the zero time.
func (t *wcTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		*t = wcTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		logger.Get().Warn("Failed to parse date", zap.String("date", s), zap.Error(err))
		return nil
	}
	*t = wcTime(parsed)
	return nil
}
