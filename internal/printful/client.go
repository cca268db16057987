package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is Printful's public API host.
	DefaultBaseURL = "https://api.printful.com"

	defaultTimeout            = 20 * time.Second
	defaultBreakerMaxFailures = 5
	defaultBreakerOpenTimeout = 30 * time.Second
	maxResponseBytes          = 8 << 20
	pageLimit                 = 100
	instrumentationName       = "github.com/sundai-club/shop/internal/printful"
)

// Config configures the Printful client.
type Config struct {
	APIKey             string
	StoreID            string
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
	HTTPClient         *http.Client
	Logger             func(ctx context.Context, event string, fields map[string]any)
	Clock              func() time.Time
	Meter              metric.Meter
	Tracer             trace.Tracer
}

// Client talks to the Printful REST API. Every call runs through a shared circuit breaker and is
// bounded by the configured timeout.
type Client struct {
	apiKey  string
	storeID string
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  func(context.Context, string, map[string]any)
	clock   func() time.Time
	tracer  trace.Tracer
	latency metric.Float64Histogram
}

// NewClient constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("printful: invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	openTimeout := cfg.BreakerOpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	latency, err := meter.Float64Histogram(
		"printful.request.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for Printful API calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("printful: create latency histogram: %w", err)
	}

	c := &Client{
		apiKey:  apiKey,
		storeID: strings.TrimSpace(cfg.StoreID),
		baseURL: baseURL,
		timeout: timeout,
		http:    httpClient,
		logger:  logger,
		clock:   func() time.Time { return clock().UTC() },
		tracer:  tracer,
		latency: latency,
	}

	failures := uint32(maxFailures)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "printful",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.IsClientError()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger(context.Background(), "printful.breaker.state_changed", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return c, nil
}

// HasStore reports whether a store id is configured.
func (c *Client) HasStore() bool {
	return c != nil && c.storeID != ""
}

// BreakerState exposes the breaker state for readiness checks.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

type envelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Data   json.RawMessage `json:"data"`
	Paging *paging         `json:"paging"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

type paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (e envelope) payload() json.RawMessage {
	if len(e.Result) > 0 && string(e.Result) != "null" {
		return e.Result
	}
	return e.Data
}

// ListStoreProducts pages through /store/products.
func (c *Client) ListStoreProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	offset := 0
	for {
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(pageLimit))

		env, err := c.do(ctx, "list_store_products", http.MethodGet, "/store/products", query, nil)
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := decodePayload(env, &page); err != nil {
			return nil, fmt.Errorf("printful: decode store products: %w", err)
		}
		all = append(all, decodeProducts(page)...)
		if env.Paging == nil || len(page) == 0 || offset+len(page) >= env.Paging.Total {
			return all, nil
		}
		offset += len(page)
	}
}

// ListCatalogProducts returns the public catalog at /products.
func (c *Client) ListCatalogProducts(ctx context.Context) ([]Product, error) {
	env, err := c.do(ctx, "list_catalog_products", http.MethodGet, "/products", nil, nil)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := decodePayload(env, &items); err != nil {
		return nil, fmt.Errorf("printful: decode catalog products: %w", err)
	}
	return decodeProducts(items), nil
}

// StoreProduct fetches a store product with its sync variants.
func (c *Client) StoreProduct(ctx context.Context, id int64) (ProductDetail, error) {
	return c.productDetail(ctx, "get_store_product", "/store/products/"+strconv.FormatInt(id, 10))
}

// CatalogProduct fetches a catalog product with its catalog variants.
func (c *Client) CatalogProduct(ctx context.Context, id int64) (ProductDetail, error) {
	return c.productDetail(ctx, "get_catalog_product", "/products/"+strconv.FormatInt(id, 10))
}

func (c *Client) productDetail(ctx context.Context, op, path string) (ProductDetail, error) {
	env, err := c.do(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return ProductDetail{}, err
	}
	var detail ProductDetail
	if err := decodePayload(env, &detail); err != nil {
		return ProductDetail{}, fmt.Errorf("printful: decode product detail: %w", err)
	}
	return detail, nil
}

// CatalogVariants fetches /products/{id}/variants, which answers with either a bare list or an
// object holding one.
func (c *Client) CatalogVariants(ctx context.Context, id int64) ([]Variant, error) {
	env, err := c.do(ctx, "get_catalog_variants", http.MethodGet, "/products/"+strconv.FormatInt(id, 10)+"/variants", nil, nil)
	if err != nil {
		return nil, err
	}
	payload := bytes.TrimSpace(env.payload())
	if len(payload) > 0 && payload[0] == '[' {
		var variants []Variant
		if err := json.Unmarshal(payload, &variants); err != nil {
			return nil, fmt.Errorf("printful: decode variants: %w", err)
		}
		return variants, nil
	}
	var detail ProductDetail
	if err := decodePayload(env, &detail); err != nil {
		return nil, fmt.Errorf("printful: decode variants: %w", err)
	}
	return detail.AllVariants(), nil
}

// SyncProducts asks Printful to resync store products.
func (c *Client) SyncProducts(ctx context.Context) (json.RawMessage, error) {
	env, err := c.do(ctx, "sync_products", http.MethodPost, "/store/products/sync", nil, nil)
	if err != nil {
		return nil, err
	}
	return env.payload(), nil
}

// ShippingRates quotes shipping for the recipient and items.
func (c *Client) ShippingRates(ctx context.Context, req ShippingRequest) ([]ShippingRate, error) {
	env, err := c.do(ctx, "shipping_rates", http.MethodPost, "/shipping/rates", nil, req)
	if err != nil {
		return nil, err
	}
	var rates []ShippingRate
	if err := decodePayload(env, &rates); err != nil {
		return nil, fmt.Errorf("printful: decode shipping rates: %w", err)
	}
	return rates, nil
}

// EstimateCosts asks Printful for the authoritative cost breakdown of a prospective order.
func (c *Client) EstimateCosts(ctx context.Context, req OrderRequest) (CostEstimate, error) {
	env, err := c.do(ctx, "estimate_costs", http.MethodPost, "/orders/estimate-costs", nil, req)
	if err != nil {
		return CostEstimate{}, err
	}
	var estimate CostEstimate
	if err := decodePayload(env, &estimate); err != nil {
		return CostEstimate{}, fmt.Errorf("printful: decode cost estimate: %w", err)
	}
	estimate.Raw = append(json.RawMessage(nil), env.payload()...)
	return estimate, nil
}

// CreateOrder creates a provider order, confirming it for fulfillment immediately when confirm is set.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, confirm bool) (Order, error) {
	var query url.Values
	if confirm {
		query = url.Values{"confirm": []string{"true"}}
	}
	env, err := c.do(ctx, "create_order", http.MethodPost, "/orders", query, req)
	if err != nil {
		return Order{}, err
	}
	return decodeOrder(env)
}

// ConfirmOrder submits a draft order for fulfillment.
func (c *Client) ConfirmOrder(ctx context.Context, id int64) (Order, error) {
	env, err := c.do(ctx, "confirm_order", http.MethodPost, "/orders/"+strconv.FormatInt(id, 10)+"/confirm", nil, nil)
	if err != nil {
		return Order{}, err
	}
	return decodeOrder(env)
}

// Order fetches order status.
func (c *Client) Order(ctx context.Context, id int64) (Order, error) {
	env, err := c.do(ctx, "get_order", http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return Order{}, err
	}
	return decodeOrder(env)
}

// OrderShipments lists shipments for an order.
func (c *Client) OrderShipments(ctx context.Context, id int64) ([]Shipment, error) {
	env, err := c.do(ctx, "get_order_shipments", http.MethodGet, "/orders/"+strconv.FormatInt(id, 10)+"/shipments", nil, nil)
	if err != nil {
		return nil, err
	}
	var shipments []Shipment
	if err := decodePayload(env, &shipments); err != nil {
		return nil, fmt.Errorf("printful: decode shipments: %w", err)
	}
	return shipments, nil
}

// Countries lists supported destination countries.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	env, err := c.do(ctx, "list_countries", http.MethodGet, "/countries", nil, nil)
	if err != nil {
		return nil, err
	}
	var countries []Country
	if err := decodePayload(env, &countries); err != nil {
		return nil, fmt.Errorf("printful: decode countries: %w", err)
	}
	return countries, nil
}

// StoreInfo returns the store behind the API key. /stores answers with a list for account-level
// tokens and an object for store-level tokens.
func (c *Client) StoreInfo(ctx context.Context) (Store, error) {
	env, err := c.do(ctx, "get_store", http.MethodGet, "/stores", nil, nil)
	if err != nil {
		return Store{}, err
	}
	payload := bytes.TrimSpace(env.payload())
	if len(payload) > 0 && payload[0] == '[' {
		var stores []Store
		if err := json.Unmarshal(payload, &stores); err != nil {
			return Store{}, fmt.Errorf("printful: decode stores: %w", err)
		}
		for _, store := range stores {
			if c.storeID == "" || strconv.FormatInt(store.ID, 10) == c.storeID {
				return store, nil
			}
		}
		return Store{}, &APIError{Operation: "get_store", StatusCode: http.StatusNotFound, Reason: "NotFound", Message: "store not found"}
	}
	var store Store
	if err := json.Unmarshal(payload, &store); err != nil {
		return Store{}, fmt.Errorf("printful: decode store: %w", err)
	}
	return store, nil
}

func decodeOrder(env envelope) (Order, error) {
	var order Order
	if err := decodePayload(env, &order); err != nil {
		return Order{}, fmt.Errorf("printful: decode order: %w", err)
	}
	order.Raw = append(json.RawMessage(nil), env.payload()...)
	return order, nil
}

func decodePayload(env envelope, target any) error {
	payload := env.payload()
	if len(payload) == 0 || string(payload) == "null" {
		return errors.New("empty result")
	}
	return json.Unmarshal(payload, target)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (envelope, error) {
	ctx, span := c.tracer.Start(ctx, "printful."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("printful.operation", op),
	)

	started := c.clock()
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, path, query, body)
	})
	elapsed := c.clock().Sub(started)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s", ErrUnavailable, op)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger(ctx, "printful.request.failed", map[string]any{
			"operation":  op,
			"durationMs": elapsed.Milliseconds(),
			"error":      err.Error(),
		})
		return envelope{}, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		span.RecordError(err)
		return envelope{}, fmt.Errorf("printful: %s: decode envelope: %w", op, err)
	}
	c.logger(ctx, "printful.request.completed", map[string]any{
		"operation":  op,
		"durationMs": elapsed.Milliseconds(),
	})
	return env, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("printful: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("printful: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.storeID != "" {
		req.Header.Set("X-PF-Store-ID", c.storeID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("printful: %s: %w", op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("printful: %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(op, resp.StatusCode, payload)
	}
	return payload, nil
}

func newAPIError(op string, status int, payload []byte) *APIError {
	apiErr := &APIError{Operation: op, StatusCode: status}
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil {
		if env.Error != nil {
			apiErr.Reason = env.Error.Reason
			apiErr.Message = env.Error.Message
		}
		if apiErr.Message == "" {
			var message string
			if json.Unmarshal(env.Result, &message) == nil {
				apiErr.Message = message
			}
		}
	}
	if apiErr.Message == "" && apiErr.Reason == "" {
		text := strings.TrimSpace(string(payload))
		if len(text) > 200 {
			text = text[:200]
		}
		apiErr.Message = text
	}
	return apiErr
}
