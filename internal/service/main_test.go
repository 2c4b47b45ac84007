package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"invoicing/internal/clock"
	"invoicing/internal/metrics"
	"invoicing/internal/repository"
	"invoicing/internal/service"
	"invoicing/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testNow is mid-morning UTC so "yesterday" and "tomorrow" are unambiguous.
var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type testEnv struct {
	db      *gorm.DB
	clock   *clock.Manual
	events  *recordingPublisher
	metrics *metrics.Metrics

	numbering service.NumberingService
	clients   service.ClientService
	estimates service.EstimateService
	invoices  service.InvoiceService
	payments  service.PaymentService
	stats     service.StatisticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	env := &testEnv{
		db:      db,
		clock:   clock.NewManual(testNow),
		events:  &recordingPublisher{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	deps := service.Deps{Clock: env.clock, Logger: zap.NewNop(), Metrics: env.metrics, Events: env.events}

	txManager := repository.NewTransactionManager(db)
	clientRepo := repository.NewClientRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	env.numbering = service.NewNumberingService(repository.NewSequenceRepository(db), txManager)
	env.clients = service.NewClientService(clientRepo, txManager, deps)
	env.invoices = service.NewInvoiceService(invoiceRepo, clientRepo, paymentRepo, estimateRepo, env.numbering, txManager, deps)
	env.estimates = service.NewEstimateService(estimateRepo, invoiceRepo, clientRepo, env.numbering, txManager, deps)
	env.payments = service.NewPaymentService(paymentRepo, invoiceRepo, txManager, deps)
	env.stats = service.NewStatisticsService(repository.NewStatisticsRepository(db), clientRepo, invoiceRepo, deps)
	return env
}

func (e *testEnv) newClient(t *testing.T, name string) service.ClientResponse {
	t.Helper()
	c, err := e.clients.CreateClient(context.Background(), service.CreateClientRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) newInvoice(t *testing.T, clientID, subtotal, dueDate string, interState bool) service.InvoiceResponse {
	t.Helper()
	inv, err := e.invoices.CreateInvoice(context.Background(), service.CreateInvoiceRequest{
		ClientID:   clientID,
		Items:      "Catering services",
		Subtotal:   subtotal,
		DueDate:    dueDate,
		InterState: interState,
	})
	require.NoError(t, err)
	return inv
}

func (e *testEnv) approvedEstimate(t *testing.T, clientID, subtotal string) service.EstimateResponse {
	t.Helper()
	ctx := context.Background()
	est, err := e.estimates.CreateEstimate(ctx, service.CreateEstimateRequest{ClientID: clientID, Items: "Event package", Subtotal: subtotal})
	require.NoError(t, err)
	est, err = e.estimates.ApproveEstimate(ctx, est.ID)
	require.NoError(t, err)
	return est
}

func (e *testEnv) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Table(table).Count(&n).Error)
	return n
}

func day(offset int) string {
	return testNow.AddDate(0, 0, offset).Format("2006-01-02")
}
