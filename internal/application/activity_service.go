package application

import (
	"context"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityService reads the audit trail.
type ActivityService struct {
	deps *Dependencies
}

// NewActivityService creates an ActivityService
func NewActivityService(deps *Dependencies) *ActivityService {
	return &ActivityService{deps: deps}
}

// Recent returns up to limit audit records, newest first.
func (s *ActivityService) Recent(ctx context.Context, actor domain.Actor, limit int) ([]*AuditRecordDTO, error) {
	if err := requireManager(actor, "read activity"); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}

	records, err := read(ctx, s.deps.Policy, "recentActivity", func(ctx context.Context) ([]*domain.AuditRecord, error) {
		return s.deps.Repos.Audit.Recent(ctx, limit)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	out := make([]*AuditRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, ToAuditRecordDTO(r))
	}
	return out, nil
}
