package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"saferoute/internal/types"
)

// Repository is the persistence the service needs; *Store implements it.
type Repository interface {
	Insert(ctx context.Context, r *Report) error
	Recent(ctx context.Context, limit int) ([]Report, error)
	UseQuota(ctx context.Context, uid string, now time.Time) error
	EnsureReporter(ctx context.Context, uid string, now time.Time) error
}

// Service validates and records activity reports.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Submit validates r, charges the reporter's daily allowance when a reporter
// is known, and stores the report.
func (s *Service) Submit(ctx context.Context, r Report) (*Report, error) {
	if !r.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if !r.Position.Valid() {
		return nil, ErrInvalidPosition
	}
	r.Note = strings.TrimSpace(r.Note)
	if len(r.Note) > maxNoteLength {
		r.Note = r.Note[:maxNoteLength]
	}

	now := s.now().UTC()
	if r.Reporter != "" {
		if err := s.useQuota(ctx, r.Reporter, now); err != nil {
			return nil, err
		}
	}

	r.ID = types.ID(uuid.NewString())
	r.CreatedAt = now
	if err := s.repo.Insert(ctx, &r); err != nil {
		return nil, fmt.Errorf("storing report: %w", err)
	}
	return &r, nil
}

// useQuota deducts one report. An unknown reporter is initialised and charged immediately.
func (s *Service) useQuota(ctx context.Context, uid string, now time.Time) error {
	err := s.repo.UseQuota(ctx, uid, now)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	// Row may be missing: create it, then retry the deduction once.
	if initErr := s.repo.EnsureReporter(ctx, uid, now); initErr != nil {
		return initErr
	}
	return s.repo.UseQuota(ctx, uid, now)
}

// Recent lists the newest reports. limit <= 0 uses the default; it is capped at 100.
func (s *Service) Recent(ctx context.Context, limit int) ([]Report, error) {
	switch {
	case limit <= 0:
		limit = defaultRecent
	case limit > maxRecent:
		limit = maxRecent
	}
	return s.repo.Recent(ctx, limit)
}
