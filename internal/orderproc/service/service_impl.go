package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	"github.com/smallbiznis/editorbridge/internal/fasteditor"
	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/editorbridge/internal/observability/metrics"
	orderprocdomain "github.com/smallbiznis/editorbridge/internal/orderproc/domain"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	ShopRepo   shopdomain.Repository
	LedgerRepo ledgerdomain.Repository
	Converter  currencydomain.Converter
	Editor     orderprocdomain.EditorGateway
	Commerce   orderprocdomain.CommerceGateway
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	appURL     string
	genID      *snowflake.Node
	clock      clock.Clock
	shopRepo   shopdomain.Repository
	ledgerRepo ledgerdomain.Repository
	converter  currencydomain.Converter
	editor     orderprocdomain.EditorGateway
	commerce   orderprocdomain.CommerceGateway
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) orderprocdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("orderproc.service"),
		appURL:     p.Cfg.AppURL,
		genID:      p.GenID,
		clock:      p.Clock,
		shopRepo:   p.ShopRepo,
		ledgerRepo: p.LedgerRepo,
		converter:  p.Converter,
		editor:     p.Editor,
		commerce:   p.Commerce,
		metrics:    p.Metrics,
	}
}

func (s *Service) ProcessPaidOrder(ctx context.Context, shop string, order platform.Order) ([]orderprocdomain.ProcessingResult, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, orderprocdomain.ErrInvalidShop
	}
	if strings.TrimSpace(order.ID) == "" {
		return nil, orderprocdomain.ErrInvalidOrder
	}

	candidates, err := extractCustomizedItems(order)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// Not an error: the order simply has nothing personalized. No
		// ledger writes, no notification, no annotation.
		return []orderprocdomain.ProcessingResult{}, nil
	}

	settings, err := s.shopRepo.Get(ctx, s.db, shop)
	if err != nil {
		return nil, err
	}

	items, err := s.recordItems(ctx, shop, order, candidates)
	if err != nil {
		// Fee computation or persistence failed mid-order. Rows already
		// written stay; the notification payload cannot be built.
		s.incOrder("error")
		return nil, err
	}

	newCount := 0
	for _, item := range items {
		if !item.AlreadyRecorded {
			newCount++
		}
	}

	results := []orderprocdomain.ProcessingResult{}
	if newCount == 0 {
		// Every item was already in the ledger: this is a redelivered
		// webhook for a fully processed order. Re-sending the sale
		// notification would double-notify FastEditor, so skip it.
		s.log.Info("order already processed, skipping notification",
			zap.String("shop", shop),
			zap.String("order_id", order.ID),
		)
		s.incOrder("redelivered")
		return results, nil
	}

	notification := s.buildNotification(shop, order, items)
	result := orderprocdomain.ProcessingResult{
		OrderID:    order.ID,
		ItemsCount: len(items),
		Success:    true,
	}
	if err := s.editor.NotifySale(ctx, settings, notification); err != nil {
		// Recoverable: fee liability is defined by the ledger rows, not by
		// notification delivery.
		result.Success = false
		result.Error = err.Error()
		if s.metrics != nil {
			s.metrics.IncNotifyFailure()
		}
		s.log.Warn("fasteditor sale notification failed",
			zap.String("shop", shop),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
	results = append(results, result)

	s.annotateOrder(ctx, settings, order, results)

	if result.Success {
		s.incOrder("ok")
	} else {
		s.incOrder("notify_failed")
	}
	return results, nil
}

// extractCustomizedItems selects the line items carrying the FastEditor
// project-key property. Everything else is ignored without error.
func extractCustomizedItems(order platform.Order) ([]orderprocdomain.CustomizedItem, error) {
	var items []orderprocdomain.CustomizedItem
	for _, line := range order.LineItems {
		projectKey := ""
		for _, prop := range line.Properties {
			if prop.Name == orderprocdomain.PropertyProjectKey {
				projectKey = strings.TrimSpace(prop.Value)
				break
			}
		}
		if projectKey == "" {
			continue
		}

		unitPrice, err := decimal.NewFromString(strings.TrimSpace(line.Price))
		if err != nil {
			return nil, fmt.Errorf("%w: line item %s price %q", orderprocdomain.ErrInvalidOrder, line.ID, line.Price)
		}
		quantity := line.Quantity
		if quantity <= 0 {
			return nil, fmt.Errorf("%w: line item %s quantity %d", orderprocdomain.ErrInvalidOrder, line.ID, quantity)
		}

		item := orderprocdomain.CustomizedItem{
			LineItemID: line.ID,
			ProjectKey: projectKey,
			ProductID:  line.ProductID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			SaleValue:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		}
		if v := strings.TrimSpace(line.VariantID); v != "" {
			item.VariantID = &v
		}
		items = append(items, item)
	}
	return items, nil
}

// recordItems computes fees and persists one ledger entry per item that is
// not already recorded. Duplicate inserts from concurrent redeliveries are
// absorbed via the unique constraint.
func (s *Service) recordItems(
	ctx context.Context,
	shop string,
	order platform.Order,
	candidates []orderprocdomain.CustomizedItem,
) ([]orderprocdomain.CustomizedItem, error) {

	now := s.clock.Now()
	items := make([]orderprocdomain.CustomizedItem, 0, len(candidates))
	for _, item := range candidates {
		exists, err := s.ledgerRepo.Exists(ctx, s.db, shop, order.ID, item.LineItemID)
		if err != nil {
			return items, err
		}
		if exists {
			item.AlreadyRecorded = true
			s.incLedger("duplicate")
			items = append(items, item)
			continue
		}

		fee, err := s.converter.ToBillingCurrency(ctx, order.Currency, item.SaleValue)
		if err != nil {
			return items, err
		}
		item.UsageFee = fee

		record := &ledgerdomain.OrderItemRecord{
			ID:         s.genID.Generate(),
			Shop:       shop,
			OrderID:    order.ID,
			LineItemID: item.LineItemID,
			OrderName:  order.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Currency:   order.Currency,
			ProjectKey: item.ProjectKey,
			ProductID:  item.ProductID,
			VariantID:  item.VariantID,
			UsageFee:   fee,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = s.ledgerRepo.Insert(ctx, s.db, record)
		switch {
		case errors.Is(err, ledgerdomain.ErrDuplicateRecord):
			// Lost the race against a concurrent delivery of the same
			// event. Same outcome as the exists check.
			item.AlreadyRecorded = true
			s.incLedger("duplicate")
		case err != nil:
			return items, err
		default:
			s.incLedger("created")
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) buildNotification(
	shop string,
	order platform.Order,
	items []orderprocdomain.CustomizedItem,
) fasteditor.SaleNotification {

	orderItems := make([]fasteditor.SaleOrderItem, 0, len(items))
	for _, item := range items {
		saleValue, _ := item.SaleValue.Float64()
		orderItems = append(orderItems, fasteditor.SaleOrderItem{
			ProjectKey:     item.ProjectKey,
			OrderItemID:    item.LineItemID,
			Quantity:       item.Quantity,
			TotalSaleValue: saleValue,
		})
	}

	email := ""
	if order.Customer != nil {
		email = order.Customer.Email
	}

	return fasteditor.SaleNotification{
		OrderID:      order.ID,
		OrderItems:   orderItems,
		BillingInfo:  contactFromAddress(order.BillingAddress, email),
		ShippingInfo: contactFromAddress(order.ShippingAddress, ""),
		CallbackURL:  fmt.Sprintf("%s/callbacks/fasteditor?shop=%s", s.appURL, shop),
	}
}

func contactFromAddress(addr *platform.Address, email string) fasteditor.ContactInfo {
	if addr == nil {
		return fasteditor.ContactInfo{Email: email}
	}
	return fasteditor.ContactInfo{
		Name:     addr.Name,
		Email:    email,
		Address1: addr.Address1,
		Address2: addr.Address2,
		City:     addr.City,
		Zip:      addr.Zip,
		Country:  addr.Country,
	}
}

// annotateOrder tags the order with the processing outcome and stores the
// result array as a metafield. Failures here are logged and swallowed: a
// non-2xx to the platform would trigger webhook redelivery for an order
// whose fees are already recorded.
func (s *Service) annotateOrder(
	ctx context.Context,
	settings *shopdomain.ShopSettings,
	order platform.Order,
	results []orderprocdomain.ProcessingResult,
) {
	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}
	tag := fmt.Sprintf("%s:%d/%d", orderprocdomain.TagProcessingPrefix, successCount, len(results))
	tags := mergeTag(order.Tags, tag, orderprocdomain.TagProcessingPrefix)

	if err := s.commerce.UpdateOrderTags(ctx, settings, order.ID, tags); err != nil {
		s.log.Warn("order tag update failed",
			zap.String("shop", settings.Shop),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		s.log.Warn("marshal processing results", zap.Error(err))
		return
	}
	field := platform.Metafield{
		Namespace: orderprocdomain.MetafieldNamespace,
		Key:       orderprocdomain.MetafieldResults,
		Value:     string(encoded),
		Type:      "json",
	}
	if err := s.commerce.SetOrderMetafield(ctx, settings, order.ID, field); err != nil {
		s.log.Warn("order metafield update failed",
			zap.String("shop", settings.Shop),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// mergeTag appends tag to the existing comma-joined list, dropping any
// previous tag with the same prefix so a reprocessed order carries one
// status tag.
func mergeTag(existing, tag, prefix string) []string {
	var tags []string
	for _, t := range strings.Split(existing, ",") {
		t = strings.TrimSpace(t)
		if t == "" || strings.HasPrefix(t, prefix) {
			continue
		}
		tags = append(tags, t)
	}
	return append(tags, tag)
}

func (s *Service) HandleEditorCallback(ctx context.Context, cb orderprocdomain.EditorCallback) error {
	if strings.TrimSpace(cb.Shop) == "" {
		return orderprocdomain.ErrInvalidShop
	}
	if strings.TrimSpace(cb.OrderID) == "" {
		return orderprocdomain.ErrInvalidOrder
	}

	if cb.Status != orderprocdomain.CallbackStatusSuccess {
		// Non-success results are informational. Acknowledge without
		// touching the order.
		s.log.Info("fasteditor callback reported non-success",
			zap.String("shop", cb.Shop),
			zap.String("order_id", cb.OrderID),
			zap.String("status", cb.Status),
			zap.String("message", cb.Message),
		)
		return nil
	}

	settings, err := s.shopRepo.Get(ctx, s.db, cb.Shop)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	fields := []platform.Metafield{
		{Namespace: orderprocdomain.MetafieldNamespace, Key: orderprocdomain.MetafieldCompleted, Value: "true", Type: "boolean"},
		{Namespace: orderprocdomain.MetafieldNamespace, Key: orderprocdomain.MetafieldCompletedAt, Value: now.Format("2006-01-02T15:04:05Z07:00"), Type: "date_time"},
	}
	if cb.DownloadURL != "" {
		fields = append(fields, platform.Metafield{
			Namespace: orderprocdomain.MetafieldNamespace,
			Key:       orderprocdomain.MetafieldDownloadURL,
			Value:     cb.DownloadURL,
			Type:      "url",
		})
	}
	if cb.OfferingID != "" {
		fields = append(fields, platform.Metafield{
			Namespace: orderprocdomain.MetafieldNamespace,
			Key:       orderprocdomain.MetafieldOfferingID,
			Value:     cb.OfferingID,
			Type:      "single_line_text_field",
		})
	}
	if cb.OrderItemID != "" {
		fields = append(fields, platform.Metafield{
			Namespace: orderprocdomain.MetafieldNamespace,
			Key:       orderprocdomain.MetafieldOrderItemID,
			Value:     cb.OrderItemID,
			Type:      "single_line_text_field",
		})
	}

	for _, field := range fields {
		if err := s.commerce.SetOrderMetafield(ctx, settings, cb.OrderID, field); err != nil {
			return err
		}
	}

	order, err := s.commerce.GetOrder(ctx, settings, cb.OrderID)
	if err != nil {
		return err
	}
	tags := mergeTag(order.Tags, orderprocdomain.TagCompleted, orderprocdomain.TagCompleted)
	return s.commerce.UpdateOrderTags(ctx, settings, cb.OrderID, tags)
}

func (s *Service) incOrder(outcome string) {
	if s.metrics != nil {
		s.metrics.IncOrderProcessed(outcome)
	}
}

func (s *Service) incLedger(result string) {
	if s.metrics != nil {
		s.metrics.IncLedgerInsert(result)
	}
}
