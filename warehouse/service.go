package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"miniledger/ledger"
)

const defaultUpsertLimit = 4

// RunStore defines the data access required by the service.
type RunStore interface {
	InsertRun(ctx context.Context, run Run) error
	UpsertAccount(ctx context.Context, runID string, a ledger.Account) error
}

// Service publishes completed reconciliation runs to the warehouse.
type Service struct {
	store       RunStore
	idGenerator func() string
	now         func() time.Time
	upsertLimit int
}

// NewService builds a Service using the provided store.
func NewService(store RunStore) *Service {
	return &Service{
		store:       store,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
		upsertLimit: defaultUpsertLimit,
	}
}

// WithIDGenerator overrides run id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// WithClock overrides the finished-at timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Publish stores the run header plus one summary row per account and returns
// the generated run id. Account rows are upserted concurrently with a bounded
// fan-out; the in-memory snapshot they come from is already final, so row
// order does not matter here.
func (s *Service) Publish(ctx context.Context, source string, accepted, dropped uint64, startedAt time.Time, accounts []ledger.Account) (string, error) {
	if source == "" {
		return "", fmt.Errorf("warehouse: missing run source")
	}

	run := Run{
		ID:         s.idGenerator(),
		Source:     source,
		Accepted:   accepted,
		Dropped:    dropped,
		StartedAt:  startedAt,
		FinishedAt: s.now(),
	}

	if err := s.store.InsertRun(ctx, run); err != nil {
		return "", err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.upsertLimit)
	for _, a := range accounts {
		g.Go(func() error {
			return s.store.UpsertAccount(ctx, run.ID, a)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return run.ID, nil
}
