package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/kafkarepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxTopupAttempts bounds how many batches retry a command after transient errors.
const maxTopupAttempts = 3

// Topupper applies a topup at most once per request ID, answering
// services.ErrTopupApplied for a repeat.
type Topupper interface {
	ApplyTopup(ctx context.Context, requestID, phone string, amount int64) (*models.TopupResponse, error)
}

// Marker remembers applied request IDs so repeats skip the database.
type Marker interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

type pendingTopup struct {
	cmd      models.TopupCommand
	offset   int64
	span     trace.SpanContext
	attempts int
}

// BatchResult counts what happened to the commands of one batch.
type BatchResult struct {
	Applied    int
	Duplicates int
	Rejected   int
	Retained   int
}

type BatchProcessor struct {
	partitionID   int
	topups        Topupper
	markers       Marker
	log           *slog.Logger
	tracer        trace.Tracer
	pending       []pendingTopup
	mutex         sync.Mutex
	lastProcessed time.Time
}

func NewBatchProcessor(partitionID int, topups Topupper, markers Marker, log *slog.Logger) *BatchProcessor {
	return &BatchProcessor{
		partitionID:   partitionID,
		topups:        topups,
		markers:       markers,
		log:           log.With("partition", partitionID),
		tracer:        otel.Tracer("wallet-topup-worker"),
		pending:       make([]pendingTopup, 0),
		lastProcessed: time.Now(),
	}
}

func (bp *BatchProcessor) AddMessage(msg *sarama.ConsumerMessage, cmd models.TopupCommand) {
	carried := kafkarepo.ExtractSaramaHeaders(context.Background(), msg.Headers)

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	bp.pending = append(bp.pending, pendingTopup{
		cmd:    cmd,
		offset: msg.Offset,
		span:   trace.SpanContextFromContext(carried),
	})
}

func (bp *BatchProcessor) Len() int {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	return len(bp.pending)
}

func (bp *BatchProcessor) ProcessBatch(ctx context.Context) BatchResult {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	return bp.process(ctx)
}

// ProcessRemaining flushes the batch on shutdown. ctx should outlive the
// worker's cancelled context.
func (bp *BatchProcessor) ProcessRemaining(ctx context.Context) BatchResult {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if len(bp.pending) > 0 {
		bp.log.Info("processing remaining topups before shutdown", "count", len(bp.pending))
	}
	return bp.process(ctx)
}

func (bp *BatchProcessor) process(ctx context.Context) BatchResult {
	var res BatchResult
	if len(bp.pending) == 0 {
		return res
	}

	bp.log.Info("processing topup batch", "count", len(bp.pending))

	var retained []pendingTopup
	order, groups := bp.groupByPhone()
	for _, phone := range order {
		for _, p := range groups[phone] {
			switch bp.apply(ctx, p) {
			case outcomeApplied:
				res.Applied++
			case outcomeDuplicate:
				res.Duplicates++
			case outcomeRejected:
				res.Rejected++
			case outcomeRetry:
				p.attempts++
				if p.attempts >= maxTopupAttempts {
					bp.log.Error("giving up on topup", "request_id", p.cmd.RequestID, "offset", p.offset)
					res.Rejected++
					continue
				}
				retained = append(retained, p)
				res.Retained++
			}
		}
	}

	bp.pending = append(bp.pending[:0], retained...)
	bp.lastProcessed = time.Now()

	bp.log.Info("topup batch processed",
		"applied", res.Applied, "duplicates", res.Duplicates, "rejected", res.Rejected, "retained", res.Retained)
	return res
}

type applyOutcome int

const (
	outcomeApplied applyOutcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeRetry
)

func (bp *BatchProcessor) apply(ctx context.Context, p pendingTopup) applyOutcome {
	if p.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, p.span)
	}
	ctx, span := bp.tracer.Start(ctx, "ApplyTopup", trace.WithAttributes(
		attribute.String("request_id", p.cmd.RequestID),
		attribute.Int64("amount", p.cmd.Amount),
	))
	defer span.End()

	cmd := p.cmd
	if cmd.RequestID == "" || cmd.Phone == "" || cmd.Amount <= 0 {
		bp.log.Warn("dropping malformed topup command", "offset", p.offset, "request_id", cmd.RequestID)
		return outcomeRejected
	}

	// the ledger rejects a repeated request ID, so the marker is only a
	// shortcut and is written after the credit commits
	key := "topup:" + cmd.RequestID
	seen, err := bp.markers.Seen(ctx, key)
	if err != nil {
		bp.log.Warn("failed to check topup marker", "request_id", cmd.RequestID, "err", err)
	}
	if seen {
		bp.log.Info("skipping duplicate topup", "request_id", cmd.RequestID)
		return outcomeDuplicate
	}

	resp, err := bp.topups.ApplyTopup(ctx, cmd.RequestID, cmd.Phone, cmd.Amount)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrTopupApplied):
		bp.log.Info("topup already in ledger", "request_id", cmd.RequestID)
		bp.remember(ctx, key)
		return outcomeDuplicate
	case errors.Is(err, sqlrepo.ErrUserNotFound) || errors.Is(err, services.ErrInvalidAmount):
		span.RecordError(err)
		span.SetStatus(codes.Error, "topup rejected")
		bp.log.Warn("rejecting topup", "request_id", cmd.RequestID, "phone", cmd.Phone, "err", err)
		return outcomeRejected
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "topup failed")
		bp.log.Error("topup failed", "request_id", cmd.RequestID, "phone", cmd.Phone, "err", err)
		return outcomeRetry
	}

	bp.remember(ctx, key)
	bp.log.Info("topup applied",
		"request_id", cmd.RequestID, "phone", cmd.Phone, "amount", cmd.Amount, "reference", resp.TransactionID)
	return outcomeApplied
}

func (bp *BatchProcessor) remember(ctx context.Context, key string) {
	if err := bp.markers.Remember(ctx, key); err != nil {
		bp.log.Warn("failed to record topup marker", "key", key, "err", err)
	}
}

// groupByPhone keeps phones in first-seen order so each account's commands
// apply in offset order.
func (bp *BatchProcessor) groupByPhone() ([]string, map[string][]pendingTopup) {
	groups := make(map[string][]pendingTopup)
	var order []string
	for _, p := range bp.pending {
		if _, ok := groups[p.cmd.Phone]; !ok {
			order = append(order, p.cmd.Phone)
		}
		groups[p.cmd.Phone] = append(groups[p.cmd.Phone], p)
	}
	return order, groups
}
