package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_ToleratesReRegistration(t *testing.T) {
	first, err := New()
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same collectors against the default registry: the duplicate
	// registration must be tolerated, not surfaced.
	second, err := New()
	require.NoError(t, err)
	require.NotNil(t, second)

	second.IncWebhook("orders/paid", "processed")
	second.IncBillingRun("charged")
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.IncWebhook("orders/paid", "processed")
	m.IncOrderProcessed("ok")
	m.IncLedgerInsert("created")
	m.IncNotifyFailure()
	m.IncBillingRun("empty")
	m.ObserveJobDuration("refresh_rates", time.Second)
	m.IncJobError("monthly_billing")
}
