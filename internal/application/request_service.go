package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// RequestService runs the pull request workflow. A stock decrement only
// ever happens as part of an approval.
type RequestService struct {
	deps   *Dependencies
	logger *logging.Logger
}

// NewRequestService creates a RequestService
func NewRequestService(deps *Dependencies) *RequestService {
	return &RequestService{deps: deps, logger: deps.Logger.WithComponent("requests")}
}

// Create files a pending request against an existing slot. Any approved user may ask.
func (s *RequestService) Create(ctx context.Context, cmd CreateRequestCommand) (*RequestDTO, error) {
	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, toAppError(err)
	}

	loc, err := read(ctx, s.deps.Policy, "findLocation", func(ctx context.Context) (*domain.Location, error) {
		return s.deps.Repos.Locations.FindByID(ctx, cmd.LocationID)
	})
	if err != nil {
		return nil, withID(toAppError(err), "locationId", cmd.LocationID)
	}

	req, err := domain.NewRequest(s.deps.newID(), cmd.Actor.Email, loc, cmd.Quantity, cmd.Reason, s.deps.now())
	if err != nil {
		return nil, toAppError(err)
	}

	err = s.deps.Policy.Write(ctx, "createRequest", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "createRequest", func(ctx context.Context) error {
			if err := s.deps.Repos.Requests.Create(ctx, req); err != nil {
				return err
			}
			return s.deps.emitEvent(ctx, aggregateRequest, req.ID, cloudevents.RequestCreated, requestEvent(req))
		})
	})
	if err != nil {
		s.logger.Error("Failed to create request", "locationId", cmd.LocationID, "requester", cmd.Actor.Email, "error", err)
		return nil, toAppError(err)
	}

	s.deps.Metrics.RecordRequestTransition(string(domain.RequestPending))
	s.logger.Info("Created request", "requestId", req.ID, "locationId", req.LocationID, "quantity", req.Quantity)
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionRequestCreate,
		fmt.Sprintf("requested %d x %s from %s", req.Quantity, req.ItemName, req.LocationID))
	return ToRequestDTO(req), nil
}

// Approve decrements the slot by the requested quantity, clamped at zero, and
// marks the request approved, both in one transaction. When the slot is gone
// the request stays pending and ErrTargetMissing is returned.
func (s *RequestService) Approve(ctx context.Context, cmd DecideRequestCommand) (*ApprovalDTO, error) {
	if err := requireManager(cmd.Actor, "approve"); err != nil {
		return nil, err
	}

	var (
		req *domain.Request
		dec *domain.DecrementResult
	)
	err := s.deps.Policy.Write(ctx, "approveRequest", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "approveRequest", func(ctx context.Context) error {
			r, err := s.deps.Repos.Requests.FindByID(ctx, cmd.RequestID)
			if err != nil {
				return err
			}
			if err := r.Approve(cmd.Actor.Email, s.deps.now()); err != nil {
				return err
			}

			d, err := s.deps.Repos.Locations.Decrement(ctx, r.LocationID, r.Quantity)
			if stderrors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrTargetMissing, r.LocationID)
			}
			if err != nil {
				return err
			}
			if err := s.deps.Repos.Requests.Decide(ctx, r); err != nil {
				return err
			}

			if err := s.emitApproval(ctx, r, d); err != nil {
				return err
			}
			req, dec = r, d
			return nil
		})
	})
	if err != nil {
		s.deps.Metrics.RecordLedgerMutation("decrement", 0, false)
		s.logger.Error("Failed to approve request", "requestId", cmd.RequestID, "error", err)
		return nil, withID(toAppError(err), "requestId", cmd.RequestID)
	}

	s.deps.Metrics.RecordLedgerMutation("decrement", dec.Applied, true)
	s.deps.Metrics.RecordShortfall(dec.Shortfall())
	s.deps.Metrics.RecordRequestTransition(string(domain.RequestApproved))
	s.logger.LedgerMutation(ctx, "decrement", dec.Location.ID, -dec.Applied, dec.Location.Quantity)
	if dec.Shortfall() > 0 {
		s.logger.Warn("Approved request exceeded stock",
			"requestId", req.ID,
			"requested", dec.Requested,
			"applied", dec.Applied,
			"shortfall", dec.Shortfall(),
		)
	}

	detail := fmt.Sprintf("approved %s: %d x %s from %s", req.ID, dec.Applied, req.ItemName, req.LocationID)
	if dec.Shortfall() > 0 {
		detail += fmt.Sprintf(" (short %d)", dec.Shortfall())
	}
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionRequestApprove, detail)

	return &ApprovalDTO{
		Request:   ToRequestDTO(req),
		Location:  ToLocationDTO(dec.Location),
		Applied:   dec.Applied,
		Shortfall: dec.Shortfall(),
	}, nil
}

func (s *RequestService) emitApproval(ctx context.Context, req *domain.Request, dec *domain.DecrementResult) error {
	decremented, err := s.deps.event(ctx, aggregateLocation, dec.Location.ID, cloudevents.StockDecremented, decrementedEvent(req.ID, dec))
	if err != nil {
		return err
	}
	approved, err := s.deps.event(ctx, aggregateRequest, req.ID, cloudevents.RequestApproved, requestEvent(req))
	if err != nil {
		return err
	}
	if decremented == nil || approved == nil {
		return nil
	}
	return s.deps.emit(ctx, decremented, approved)
}

// Reject closes a pending request without touching stock.
func (s *RequestService) Reject(ctx context.Context, cmd DecideRequestCommand) (*RequestDTO, error) {
	if err := requireManager(cmd.Actor, "reject"); err != nil {
		return nil, err
	}

	var req *domain.Request
	err := s.deps.Policy.Write(ctx, "rejectRequest", func(ctx context.Context) error {
		return s.deps.Repos.Tx.RunInTransaction(ctx, "rejectRequest", func(ctx context.Context) error {
			r, err := s.deps.Repos.Requests.FindByID(ctx, cmd.RequestID)
			if err != nil {
				return err
			}
			if err := r.Reject(cmd.Actor.Email, s.deps.now()); err != nil {
				return err
			}
			if err := s.deps.Repos.Requests.Decide(ctx, r); err != nil {
				return err
			}
			if err := s.deps.emitEvent(ctx, aggregateRequest, r.ID, cloudevents.RequestRejected, requestEvent(r)); err != nil {
				return err
			}
			req = r
			return nil
		})
	})
	if err != nil {
		s.logger.Error("Failed to reject request", "requestId", cmd.RequestID, "error", err)
		return nil, withID(toAppError(err), "requestId", cmd.RequestID)
	}

	s.deps.Metrics.RecordRequestTransition(string(domain.RequestRejected))
	s.deps.Auditor.Record(ctx, cmd.Actor, domain.ActionRequestReject,
		fmt.Sprintf("rejected %s: %d x %s from %s", req.ID, req.Quantity, req.ItemName, req.LocationID))
	return ToRequestDTO(req), nil
}

// Get returns one request. Pullers may only read their own.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, id string) (*RequestDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := read(ctx, s.deps.Policy, "findRequest", func(ctx context.Context) (*domain.Request, error) {
		return s.deps.Repos.Requests.FindByID(ctx, id)
	})
	if err != nil {
		return nil, withID(toAppError(err), "requestId", id)
	}
	if !actor.IsManager() && req.Requester != actor.Email {
		return nil, withID(toAppError(domain.ErrRequestNotFound), "requestId", id)
	}
	return ToRequestDTO(req), nil
}

// List returns requests newest first. Managers see everything and may filter
// by status; pullers only see their own requests.
func (s *RequestService) List(ctx context.Context, q ListRequestsQuery) ([]*RequestDTO, error) {
	if err := requireActor(q.Actor); err != nil {
		return nil, err
	}
	filter := domain.RequestFilter{Status: domain.RequestStatus(q.Status), Limit: q.Limit}
	if q.Status != "" && !filter.Status.IsValid() {
		return nil, toAppError(domain.NewValidationError("status", "must be one of: pending, approved, rejected"))
	}
	if !q.Actor.IsManager() {
		filter.Requester = q.Actor.Email
	}

	reqs, err := read(ctx, s.deps.Policy, "listRequests", func(ctx context.Context) ([]*domain.Request, error) {
		return s.deps.Repos.Requests.List(ctx, filter)
	})
	if err != nil {
		s.logger.Error("Failed to list requests", "status", q.Status, "error", err)
		return nil, toAppError(err)
	}
	return ToRequestDTOs(reqs), nil
}

// CountPending returns the number of requests awaiting a decision.
func (s *RequestService) CountPending(ctx context.Context, actor domain.Actor) (*CountDTO, error) {
	if err := requireManager(actor, "count pending requests"); err != nil {
		return nil, err
	}
	n, err := read(ctx, s.deps.Policy, "countPendingRequests", func(ctx context.Context) (int64, error) {
		return s.deps.Repos.Requests.CountByStatus(ctx, domain.RequestPending)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return &CountDTO{Count: n}, nil
}
