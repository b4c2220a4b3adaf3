package counter

import (
	"context"

	"PathLab/apperrors"

	"go.uber.org/zap"
)

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Next allocates the next number of seq. A store failure is returned as an
// infrastructure error; callers must abort rather than guess an ID.
func (s *Service) Next(ctx context.Context, seq Sequence) (int64, error) {
	n, err := s.store.Increment(ctx, seq.Name)
	if err != nil {
		s.log.Error("counter allocation failed", zap.String("sequence", seq.Name), zap.Error(err))
		return 0, apperrors.Infrastructure(err, "could not allocate %s number", seq.Name)
	}
	return n, nil
}

// NextID allocates and formats in one step.
func (s *Service) NextID(ctx context.Context, seq Sequence) (string, error) {
	n, err := s.Next(ctx, seq)
	if err != nil {
		return "", err
	}
	return seq.Format(n), nil
}

func (s *Service) Current(ctx context.Context, seq Sequence) (int64, error) {
	n, err := s.store.Current(ctx, seq.Name)
	if err != nil {
		return 0, apperrors.Infrastructure(err, "could not read %s", seq.Name)
	}
	return n, nil
}

// Resync raises the counter so the next allocation is above maxIssued. It
// never lowers the counter.
func (s *Service) Resync(ctx context.Context, seq Sequence, maxIssued int64) (before, after int64, err error) {
	if maxIssued < 0 {
		return 0, 0, apperrors.Validation("max issued value cannot be negative")
	}
	before, err = s.Current(ctx, seq)
	if err != nil {
		return 0, 0, err
	}
	after, err = s.store.RaiseTo(ctx, seq.Name, maxIssued)
	if err != nil {
		return 0, 0, apperrors.Infrastructure(err, "could not resync %s", seq.Name)
	}
	s.log.Info("counter resynced",
		zap.String("sequence", seq.Name),
		zap.Int64("before", before),
		zap.Int64("max_issued", maxIssued),
		zap.Int64("after", after),
	)
	return before, after, nil
}
