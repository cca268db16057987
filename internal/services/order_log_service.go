package services

import (
	"context"
	"strings"
	"time"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/repositories"
)

const defaultOrderLogTimeout = 5 * time.Second

// OrderLogServiceDeps wires the order history store. A nil Repository disables logging.
type OrderLogServiceDeps struct {
	Repository repositories.OrderLogRepository
	Timeout    time.Duration
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type orderLogService struct {
	repo    repositories.OrderLogRepository
	timeout time.Duration
	logger  func(ctx context.Context, event string, fields map[string]any)
}

var _ OrderLogService = (*orderLogService)(nil)

// NewOrderLogService constructs the best-effort order history service.
func NewOrderLogService(deps OrderLogServiceDeps) OrderLogService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultOrderLogTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderLogService{repo: deps.Repository, timeout: timeout, logger: logger}
}

func (s *orderLogService) Record(ctx context.Context, record OrderRecord) string {
	if s.repo == nil {
		return ""
	}
	applyOrderRecordDefaults(&record)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.repo.Insert(ctx, record)
	if err != nil {
		s.logger(ctx, "orderlog.insert_failed", map[string]any{
			"stripeSessionId": record.StripeCheckoutSessionID,
			"error":           err.Error(),
		})
		return ""
	}
	s.logger(ctx, "orderlog.inserted", map[string]any{"orderRecordId": id})
	return id
}

func (s *orderLogService) Update(ctx context.Context, id string, update OrderRecordUpdate) bool {
	id = strings.TrimSpace(id)
	if s.repo == nil || id == "" || update.IsEmpty() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Update(ctx, id, update); err != nil {
		s.logger(ctx, "orderlog.update_failed", map[string]any{
			"orderRecordId": id,
			"error":         err.Error(),
		})
		return false
	}
	return true
}

func (s *orderLogService) FindByStripeSession(ctx context.Context, sessionID string) (OrderRecord, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if s.repo == nil || sessionID == "" {
		return OrderRecord{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	record, err := s.repo.FindByStripeSession(ctx, sessionID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			s.logger(ctx, "orderlog.lookup_failed", map[string]any{
				"stripeSessionId": sessionID,
				"error":           err.Error(),
			})
		}
		return OrderRecord{}, false
	}
	return record, true
}

func (s *orderLogService) ListByEmail(ctx context.Context, email string) []OrderRecord {
	email = strings.TrimSpace(email)
	if s.repo == nil || email == "" {
		return []OrderRecord{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	records, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		s.logger(ctx, "orderlog.list_failed", map[string]any{"error": err.Error()})
		return []OrderRecord{}
	}
	return records
}

func applyOrderRecordDefaults(record *OrderRecord) {
	if record.OrderStatus == "" {
		record.OrderStatus = domain.OrderStatusPending
	}
	if record.PaymentStatus == "" {
		record.PaymentStatus = domain.PaymentStatusPending
	}
	if record.Currency == "" {
		record.Currency = defaultCurrency
	}
	if record.CostSource == "" {
		record.CostSource = domain.CostSourceEstimated
	}
	if record.ShippingAddress == nil {
		record.ShippingAddress = map[string]any{}
	}
	if record.Items == nil {
		record.Items = []map[string]any{}
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
}
