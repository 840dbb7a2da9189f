package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	currencydomain "github.com/smallbiznis/editorbridge/internal/currency/domain"
	currencyservice "github.com/smallbiznis/editorbridge/internal/currency/service"
	"github.com/smallbiznis/editorbridge/internal/fasteditor"
	ledgerdomain "github.com/smallbiznis/editorbridge/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/editorbridge/internal/ledger/repository"
	orderprocdomain "github.com/smallbiznis/editorbridge/internal/orderproc/domain"
	"github.com/smallbiznis/editorbridge/internal/platform"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
	shoprepo "github.com/smallbiznis/editorbridge/internal/shop/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockEditor struct {
	mock.Mock
}

func (m *mockEditor) NotifySale(ctx context.Context, settings *shopdomain.ShopSettings, notification fasteditor.SaleNotification) error {
	args := m.Called(ctx, settings, notification)
	return args.Error(0)
}

type mockCommerce struct {
	mock.Mock
}

func (m *mockCommerce) GetOrder(ctx context.Context, settings *shopdomain.ShopSettings, orderID string) (*platform.Order, error) {
	args := m.Called(ctx, settings, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.Order), args.Error(1)
}

func (m *mockCommerce) SetOrderMetafield(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, field platform.Metafield) error {
	args := m.Called(ctx, settings, orderID, field)
	return args.Error(0)
}

func (m *mockCommerce) UpdateOrderTags(ctx context.Context, settings *shopdomain.ShopSettings, orderID string, tags []string) error {
	args := m.Called(ctx, settings, orderID, tags)
	return args.Error(0)
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	editor   *mockEditor
	commerce *mockCommerce
	ledger   ledgerdomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.ShopSettings{},
		&ledgerdomain.OrderItemRecord{},
		&currencydomain.CurrencyRate{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	shops := shoprepo.Provide()
	require.NoError(t, shops.Upsert(context.Background(), db, &shopdomain.ShopSettings{
		ID:            node.Generate(),
		Shop:          "demo.example.com",
		APIKey:        "key",
		APISecret:     "secret",
		PlatformToken: "token",
		Locale:        "en",
		Currency:      "EUR",
		Country:       "DE",
		Installed:     true,
	}))

	require.NoError(t, db.Create(&currencydomain.CurrencyRate{
		ID:   node.Generate(),
		Code: "USD",
		Rate: decimal.RequireFromString("1.1"),
		Base: "EUR",
	}).Error)

	cfg := config.Config{AppURL: "https://bridge.example.com", BillingCurrency: "EUR"}
	converter := currencyservice.NewConverter(currencyservice.ConverterParams{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: cfg,
	})

	editor := &mockEditor{}
	commerce := &mockCommerce{}
	ledger := ledgerrepo.Provide()

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		Cfg:        cfg,
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		ShopRepo:   shops,
		LedgerRepo: ledger,
		Converter:  converter,
		Editor:     editor,
		Commerce:   commerce,
	}).(*Service)

	return &fixture{db: db, svc: svc, editor: editor, commerce: commerce, ledger: ledger}
}

func customizedOrder() platform.Order {
	return platform.Order{
		ID:       "450789469",
		Name:     "#1001",
		Currency: "USD",
		LineItems: []platform.LineItem{
			{
				ID:        "li-1",
				Quantity:  2,
				Price:     "5.50",
				ProductID: "p-1",
				VariantID: "v-1",
				Properties: []platform.Property{
					{Name: "_fasteditor_project_key", Value: "pk-abc"},
				},
			},
			{
				ID:       "li-2",
				Quantity: 1,
				Price:    "9.99",
			},
		},
		Customer:       &platform.Customer{Email: "buyer@example.com"},
		BillingAddress: &platform.Address{Name: "Buyer", City: "Berlin", Country: "DE"},
	}
}

func TestProcessPaidOrder_NoCustomizedItems(t *testing.T) {
	f := newFixture(t)

	order := customizedOrder()
	order.LineItems = order.LineItems[1:]

	results, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	require.Empty(t, results)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.OrderItemRecord{}).Count(&count).Error)
	require.Zero(t, count)
	f.editor.AssertNotCalled(t, "NotifySale", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPaidOrder_RecordsAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	order := customizedOrder()

	var got fasteditor.SaleNotification
	f.editor.On("NotifySale", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(2).(fasteditor.SaleNotification)
		}).
		Return(nil).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, order.ID, []string{"fasteditor-processing:1/1"}).Return(nil).Once()
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, order.ID, mock.Anything).Return(nil).Once()

	results, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Equal(t, 1, results[0].ItemsCount)

	// One notification for the order, carrying only the customized item.
	require.Equal(t, order.ID, got.OrderID)
	require.Len(t, got.OrderItems, 1)
	require.Equal(t, "pk-abc", got.OrderItems[0].ProjectKey)
	require.Equal(t, "li-1", got.OrderItems[0].OrderItemID)
	require.InDelta(t, 11.0, got.OrderItems[0].TotalSaleValue, 0.001)
	require.Equal(t, "https://bridge.example.com/callbacks/fasteditor?shop=demo.example.com", got.CallbackURL)
	require.Equal(t, "buyer@example.com", got.BillingInfo.Email)

	var records []ledgerdomain.OrderItemRecord
	require.NoError(t, f.db.Find(&records).Error)
	require.Len(t, records, 1)
	// 2 x 5.50 USD at rate 1.1 -> 10.00 EUR.
	require.Equal(t, "10.00", records[0].UsageFee.StringFixed(2))
	require.False(t, records[0].Billed)

	f.editor.AssertExpectations(t)
	f.commerce.AssertExpectations(t)
}

func TestProcessPaidOrder_RedeliveryDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	order := customizedOrder()

	f.editor.On("NotifySale", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)

	// The redelivered webhook records nothing new and stays silent.
	results, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	require.Empty(t, results)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.OrderItemRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	f.editor.AssertNumberOfCalls(t, "NotifySale", 1)
}

func TestProcessPaidOrder_NotifyFailureKeepsLedger(t *testing.T) {
	f := newFixture(t)
	order := customizedOrder()

	f.editor.On("NotifySale", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("fasteditor_request_failed: status 503")).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, order.ID, []string{"fasteditor-processing:0/1"}).Return(nil).Once()
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, order.ID, mock.Anything).Return(nil).Once()

	results, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Success)
	require.NotEmpty(t, results[0].Error)

	// The fee liability stands even though FastEditor never heard about it.
	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.OrderItemRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProcessPaidOrder_AnnotationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	order := customizedOrder()

	f.editor.On("NotifySale", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("platform_request_failed: status 500"))
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("platform_request_failed: status 500"))

	results, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
}

func TestProcessPaidOrder_UnknownShop(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessPaidOrder(context.Background(), "ghost.example.com", customizedOrder())
	require.ErrorIs(t, err, shopdomain.ErrShopNotFound)
}

func TestProcessPaidOrder_TagReplacesPreviousStatus(t *testing.T) {
	f := newFixture(t)
	order := customizedOrder()
	order.Tags = "vip, fasteditor-processing:0/1"

	f.editor.On("NotifySale", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, order.ID, []string{"vip", "fasteditor-processing:1/1"}).Return(nil).Once()
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.ProcessPaidOrder(context.Background(), "demo.example.com", order)
	require.NoError(t, err)
	f.commerce.AssertExpectations(t)
}

func TestHandleEditorCallback_NonSuccessIsAcknowledged(t *testing.T) {
	f := newFixture(t)

	err := f.svc.HandleEditorCallback(context.Background(), orderprocdomain.EditorCallback{
		Shop:    "demo.example.com",
		OrderID: "450789469",
		Status:  "failed",
		Message: "render error",
	})
	require.NoError(t, err)
	f.commerce.AssertNotCalled(t, "SetOrderMetafield", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.commerce.AssertNotCalled(t, "UpdateOrderTags", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEditorCallback_SuccessAnnotatesOrder(t *testing.T) {
	f := newFixture(t)

	var fields []platform.Metafield
	f.commerce.On("SetOrderMetafield", mock.Anything, mock.Anything, "450789469", mock.Anything).
		Run(func(args mock.Arguments) {
			fields = append(fields, args.Get(3).(platform.Metafield))
		}).
		Return(nil)
	f.commerce.On("GetOrder", mock.Anything, mock.Anything, "450789469").
		Return(&platform.Order{ID: "450789469", Tags: "vip"}, nil).Once()
	f.commerce.On("UpdateOrderTags", mock.Anything, mock.Anything, "450789469", []string{"vip", "fasteditor-completed"}).Return(nil).Once()

	err := f.svc.HandleEditorCallback(context.Background(), orderprocdomain.EditorCallback{
		Shop:        "demo.example.com",
		OrderID:     "450789469",
		Status:      "success",
		DownloadURL: "https://cdn.fasteditor.example/files/abc.pdf",
		OfferingID:  "off-1",
		OrderItemID: "li-1",
	})
	require.NoError(t, err)

	keys := make(map[string]string, len(fields))
	for _, field := range fields {
		require.Equal(t, "fasteditor", field.Namespace)
		keys[field.Key] = field.Value
	}
	require.Equal(t, "true", keys[orderprocdomain.MetafieldCompleted])
	require.Equal(t, "https://cdn.fasteditor.example/files/abc.pdf", keys[orderprocdomain.MetafieldDownloadURL])
	require.Equal(t, "off-1", keys[orderprocdomain.MetafieldOfferingID])
	require.Equal(t, "li-1", keys[orderprocdomain.MetafieldOrderItemID])
	require.NotEmpty(t, keys[orderprocdomain.MetafieldCompletedAt])

	f.commerce.AssertExpectations(t)
}

func TestExtractCustomizedItems_InvalidPrice(t *testing.T) {
	order := customizedOrder()
	order.LineItems[0].Price = "not-a-number"

	_, err := extractCustomizedItems(order)
	require.ErrorIs(t, err, orderprocdomain.ErrInvalidOrder)
}

func TestExtractCustomizedItems_ZeroQuantity(t *testing.T) {
	order := customizedOrder()
	order.LineItems[0].Quantity = 0

	_, err := extractCustomizedItems(order)
	require.ErrorIs(t, err, orderprocdomain.ErrInvalidOrder)
}
