package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

// TicketRequest asks for seats of one screening on behalf of a customer.
type TicketRequest struct {
	ScreeningID string
	Seats       []model.SeatKey
	FirstName   string
	LastName    string
}

// ChangeResult pairs the cancelled ticket with its replacement.
type ChangeResult struct {
	Previous *model.Ticket
	Ticket   *model.Ticket
}

// CreateTicket books the requested seats for user. Registered users own the
// ticket; guest tickets have no owner. Customer names default to the user's.
func (s *BookingService) CreateTicket(ctx context.Context, user *model.User, req TicketRequest) (*model.Ticket, error) {
	var owner, guest string
	switch {
	case user == nil:
	case user.IsGuest():
		guest = user.ID
	default:
		owner = user.ID
		if strings.TrimSpace(req.FirstName) == "" && strings.TrimSpace(req.LastName) == "" {
			req.FirstName, req.LastName = user.FirstName, user.LastName
		}
	}
	return s.sell(ctx, req, owner, guest)
}

// CreateTicketForCustomer is a counter sale: the ticket has no owner.
func (s *BookingService) CreateTicketForCustomer(ctx context.Context, req TicketRequest) (*model.Ticket, error) {
	return s.sell(ctx, req, "", "")
}

func (s *BookingService) sell(ctx context.Context, req TicketRequest, owner, guest string) (*model.Ticket, error) {
	t, err := s.issue(ctx, req, owner, guest)
	if err != nil {
		return nil, err
	}
	s.metrics.TicketOp("create")
	s.publish(ctx, queue.TicketIssued, t, "")
	s.logger(ctx).WithFields(logrus.Fields{
		"ticket_id":    t.ID,
		"screening_id": t.ScreeningID,
		"seats":        t.SeatLabels(),
	}).Info("ticket issued")
	return t, nil
}

// issue reserves the seats, records the ticket and writes both through. On
// any failure after the reservation the seats are released again.
func (s *BookingService) issue(ctx context.Context, req TicketRequest, owner, guest string) (*model.Ticket, error) {
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first == "" {
		return nil, invalid("first_name", "is required")
	}
	if last == "" {
		return nil, invalid("last_name", "is required")
	}
	sc, err := s.Screening(req.ScreeningID)
	if err != nil {
		return nil, err
	}
	seats, err := sc.Grid.Validate(req.Seats)
	if err != nil {
		return nil, invalid("seats", err.Error())
	}
	if err := sc.Grid.ReserveAll(req.Seats); err != nil {
		if errors.Is(err, model.ErrSeatsUnavailable) {
			s.metrics.SeatConflict()
		}
		return nil, err
	}

	t := model.NewTicket(s.newID(), sc, seats, first, last, owner, s.now())
	t.GuestID = guest
	err = s.dir.Update(func(tx *directory.Tx) error {
		if err := tx.InsertTicket(t); err != nil {
			return err
		}
		track(ctx, s, "save_ticket", t.ID, s.store.SaveTicket(ctx, t))
		track(ctx, s, "save_screening", sc.ID, s.store.SaveScreening(ctx, sc))
		return nil
	})
	if err != nil {
		sc.Grid.ReleaseAll(req.Seats)
		if errors.Is(err, directory.ErrScreeningMissing) {
			return nil, ErrScreeningNotFound
		}
		return nil, err
	}
	return t, nil
}

// CancelTicket releases the ticket's seats and removes it. A second cancel of
// the same id reports false.
func (s *BookingService) CancelTicket(ctx context.Context, id string) bool {
	t, ok := s.cancel(ctx, id)
	if ok {
		s.metrics.TicketOp("cancel")
		s.publish(ctx, queue.TicketCancelled, t, "")
		s.logger(ctx).WithField("ticket_id", id).Info("ticket cancelled")
	}
	return ok
}

func (s *BookingService) cancel(ctx context.Context, id string) (*model.Ticket, bool) {
	var (
		t  *model.Ticket
		sc *model.Screening
		ok bool
	)
	_ = s.dir.Update(func(tx *directory.Tx) error {
		if t, ok = tx.DeleteTicket(id); !ok {
			return nil
		}
		track(ctx, s, "delete_ticket", id, s.store.DeleteTicket(ctx, id))
		if sc, _ = tx.Screening(t.ScreeningID); sc != nil {
			sc.Grid.ReleaseAll(t.SeatKeys())
			track(ctx, s, "save_screening", sc.ID, s.store.SaveScreening(ctx, sc))
		}
		return nil
	})
	if !ok {
		return nil, false
	}
	return t, true
}

// ChangeTicket cancels the ticket and issues a new one for the same customer
// and owner on the target screening. The new screening and seat labels are
// checked before anything is cancelled. If issuing fails afterwards the old
// ticket is reinstated with its seats; the error then wraps ErrChangeFailed,
// or ErrChangeOrphaned when reinstating failed too.
func (s *BookingService) ChangeTicket(ctx context.Context, id, screeningID string, seats []model.SeatKey) (*ChangeResult, error) {
	old, err := s.Ticket(id)
	if err != nil {
		return nil, err
	}
	target, err := s.Screening(screeningID)
	if err != nil {
		return nil, err
	}
	if _, err := target.Grid.Validate(seats); err != nil {
		return nil, invalid("seats", err.Error())
	}

	if _, ok := s.cancel(ctx, id); !ok {
		return nil, ErrTicketNotFound
	}
	next, err := s.issue(ctx, TicketRequest{
		ScreeningID: screeningID,
		Seats:       seats,
		FirstName:   old.FirstName,
		LastName:    old.LastName,
	}, old.OwnerID, old.GuestID)
	if err != nil {
		s.metrics.TicketOp("change_failed")
		if rerr := s.reinstate(ctx, old); rerr != nil {
			s.logger(ctx).WithError(rerr).WithField("ticket_id", id).Error("could not reinstate ticket after failed change")
			return nil, fmt.Errorf("%w: %w", ErrChangeOrphaned, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrChangeFailed, err)
	}

	s.metrics.TicketOp("change")
	s.publish(ctx, queue.TicketChanged, next, old.ID)
	s.logger(ctx).WithFields(logrus.Fields{
		"ticket_id":          next.ID,
		"previous_ticket_id": old.ID,
		"from":               old.SeatLabels(),
		"to":                 next.SeatLabels(),
	}).Info("ticket changed")
	return &ChangeResult{Previous: old, Ticket: next}, nil
}

// reinstate puts a cancelled ticket back unchanged: same id, seats, price
// and used flag.
func (s *BookingService) reinstate(ctx context.Context, t *model.Ticket) error {
	sc, err := s.Screening(t.ScreeningID)
	if err != nil {
		return err
	}
	keys := t.SeatKeys()
	if err := sc.Grid.ReserveAll(keys); err != nil {
		return err
	}
	err = s.dir.Update(func(tx *directory.Tx) error {
		if err := tx.InsertTicket(t); err != nil {
			return err
		}
		track(ctx, s, "save_ticket", t.ID, s.store.SaveTicket(ctx, t))
		track(ctx, s, "save_screening", sc.ID, s.store.SaveScreening(ctx, sc))
		return nil
	})
	if err != nil {
		sc.Grid.ReleaseAll(keys)
		return err
	}
	return nil
}

// MarkUsed flags the ticket as used at the door. It reports whether the
// ticket exists; marking an already used ticket changes nothing.
func (s *BookingService) MarkUsed(ctx context.Context, id string) bool {
	var (
		t             *model.Ticket
		found, marked bool
	)
	_ = s.dir.Update(func(tx *directory.Tx) error {
		if t, found = tx.Ticket(id); found && t.MarkUsed() {
			marked = true
			track(ctx, s, "save_ticket", t.ID, s.store.SaveTicket(ctx, t))
		}
		return nil
	})
	if !found {
		return false
	}
	if marked {
		s.metrics.TicketOp("use")
		s.publish(ctx, queue.TicketUsed, t, "")
	}
	return true
}

func (s *BookingService) Ticket(id string) (*model.Ticket, error) {
	var (
		t  *model.Ticket
		ok bool
	)
	s.dir.View(func(r directory.Reader) { t, ok = r.Ticket(id) })
	if !ok {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// TicketsForScreening returns the screening's tickets, oldest first.
func (s *BookingService) TicketsForScreening(screeningID string) []*model.Ticket {
	var out []*model.Ticket
	s.dir.View(func(r directory.Reader) { out = r.TicketsForScreening(screeningID) })
	return out
}

// CurrentUserTickets lists what user owns. Guests own nothing.
func (s *BookingService) CurrentUserTickets(user *model.User) []*model.Ticket {
	if user == nil || user.IsGuest() {
		return nil
	}
	var out []*model.Ticket
	s.dir.View(func(r directory.Reader) { out = r.TicketsOwnedBy(user.ID) })
	return out
}

// CanManage reports whether user may cancel, change or inspect t. Staff may
// act on any ticket, registered users only on their own.
func CanManage(user *model.User, t *model.Ticket) bool {
	switch {
	case user == nil:
		return false
	case user.IsStaff():
		return true
	case user.IsGuest():
		return false
	default:
		return t.OwnerID != "" && t.OwnerID == user.ID
	}
}

// CanView reports whether user may read t. On top of CanManage, a guest may
// read the tickets booked in its own session.
func CanView(user *model.User, t *model.Ticket) bool {
	if CanManage(user, t) {
		return true
	}
	return user != nil && user.IsGuest() && t.GuestID != "" && t.GuestID == user.ID
}
