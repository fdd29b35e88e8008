package listener

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	invusecase "github.com/fekuna/omnipos-ledger-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

// fakeLedger fails each item with the queued errors before succeeding.
type fakeLedger struct {
	mu       sync.Mutex
	failures map[string][]error
	applied  []dto.AdjustInventoryInput
	actors   []model.Actor
}

func (f *fakeLedger) ApplyAdjustment(_ context.Context, actor model.Actor, input *dto.AdjustInventoryInput) (*dto.AdjustmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.failures[input.ItemID]; len(errs) > 0 {
		f.failures[input.ItemID] = errs[1:]
		return nil, errs[0]
	}
	f.applied = append(f.applied, *input)
	f.actors = append(f.actors, actor)
	return &dto.AdjustmentResult{}, nil
}

func (f *fakeLedger) GetBalance(context.Context, model.Actor, string) (*model.InventoryBalance, error) {
	return nil, nil
}

func (f *fakeLedger) GetAvailability(context.Context, model.Actor, string) (*dto.Availability, error) {
	return nil, nil
}

func (f *fakeLedger) ListMovements(context.Context, model.Actor, string, int) ([]model.InventoryMovement, error) {
	return nil, nil
}

func (f *fakeLedger) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

func run(t *testing.T, reader *fakeReader, ledger *fakeLedger, m *metrics.Metrics, wantCommits int) {
	t.Helper()
	l := NewInventoryListener(reader, "inventory.adjustments", ledger, m, logger.NewNop())
	l.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	l.redeliverAfter = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) >= wantCommits && len(reader.msgs) == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestListenerAppliesAndCommits(t *testing.T) {
	reader := newFakeReader(
		`{"eventId":"e1","tenantId":"t1","actorUserId":"u1","itemId":"i1","qtyDelta":"5","unitCostMinor":"120","note":"receipt"}`,
		`{"eventId":"e2","tenantId":"t1","actorUserId":"u1","itemId":"i1","qtyDelta":-2}`,
	)
	ledger := &fakeLedger{failures: map[string][]error{}}
	m := metrics.New()

	run(t, reader, ledger, m, 2)

	assert.Equal(t, []int64{0, 1}, reader.commits())
	require.Equal(t, 2, ledger.appliedCount())
	assert.Equal(t, "5", ledger.applied[0].QtyDelta.String())
	assert.Equal(t, "120", ledger.applied[0].UnitCostMinor.String())
	assert.Equal(t, "-2", ledger.applied[1].QtyDelta.String())
	assert.Equal(t, model.Actor{TenantID: "t1", UserID: "u1"}, ledger.actors[0])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeApplied)))
}

func TestListenerRetriesRetryableFailures(t *testing.T) {
	reader := newFakeReader(`{"eventId":"e1","tenantId":"t1","itemId":"i1","qtyDelta":"-1"}`)
	ledger := &fakeLedger{failures: map[string][]error{
		"i1": {apperr.Retryable("deadlock detected"), apperr.Retryable("lock timeout")},
	}}

	run(t, reader, ledger, nil, 1)

	assert.Equal(t, []int64{0}, reader.commits())
	assert.Equal(t, 1, ledger.appliedCount())
}

func TestListenerCommitsRejectedAndMalformed(t *testing.T) {
	reader := newFakeReader(
		`not json`,
		`{"eventId":"e2","itemId":"i1","qtyDelta":"1"}`,
		`{"eventId":"e3","tenantId":"t1","itemId":"i2","qtyDelta":"-9"}`,
	)
	ledger := &fakeLedger{failures: map[string][]error{
		"i2": {apperr.BadRequest("negative_stock_not_allowed", "negative stock is not allowed")},
	}}
	m := metrics.New()

	run(t, reader, ledger, m, 3)

	assert.Equal(t, []int64{0, 1, 2}, reader.commits())
	assert.Equal(t, 0, ledger.appliedCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeRejected)))
}

func TestListenerCommitsOutOfRangeAdjustment(t *testing.T) {
	reader := newFakeReader(`{"eventId":"e1","tenantId":"t1","itemId":"i1","qtyDelta":"1e40","unitCostMinor":"1"}`)
	m := metrics.New()
	l := NewInventoryListener(reader, "inventory.adjustments", invusecase.NewInventoryUseCase(memory.New(), nil, logger.NewNop()), m, logger.NewNop())
	l.redeliverAfter = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []int64{0}, reader.commits())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeRejected)))
}

func TestListenerHoldsMessageUntilRetriesSucceed(t *testing.T) {
	reader := newFakeReader(
		`{"eventId":"e1","tenantId":"t1","itemId":"i1","qtyDelta":"-1"}`,
		`{"eventId":"e2","tenantId":"t1","itemId":"i2","qtyDelta":"-1"}`,
	)
	retry := apperr.Retryable("lock timeout")
	ledger := &fakeLedger{failures: map[string][]error{"i1": {retry, retry, retry, retry}}}
	m := metrics.New()

	run(t, reader, ledger, m, 2)

	assert.Equal(t, []int64{0, 1}, reader.commits())
	require.Equal(t, 2, ledger.appliedCount())
	assert.Equal(t, "i1", ledger.applied[0].ItemID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KafkaMessagesConsumed.WithLabelValues("inventory.adjustments", outcomeApplied)))
}
