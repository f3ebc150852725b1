// Package session models the per-requester picking flow as an
// explicit state machine.  A PickSession is ephemeral, caller-supplied
// state owned by the front-end: the reservation engine never assumes
// it is durable or that only one exists per requester, and seat
// availability is never decided here; only the engine's atomic
// transition can do that.
package session

import "errors"

// Stage enumerates the states of a picking session.  Only the fields
// listed for the current stage are meaningful; operations that do not
// match the stage are rejected with ErrWrongStage.
type Stage string

const (
	StageIdle            Stage = "IDLE"             // no event chosen
	StagePicking         Stage = "PICKING"          // event chosen, toggling seats
	StageAwaitingPayment Stage = "AWAITING_PAYMENT" // order finalized, proof outstanding
)

// ErrWrongStage is returned when an operation is attempted in a stage
// it is not valid for.  Handlers should translate this into an HTTP
// 409 response.
var ErrWrongStage = errors.New("operation does not match session stage")

// PickSession tracks one requester's progress from choosing an event
// to awaiting payment for a finalized order.
type PickSession struct {
	RequesterID     uint64   `json:"requester_id"`
	Stage           Stage    `json:"stage"`
	EventID         uint64   `json:"event_id,omitempty"`          // valid in PICKING and AWAITING_PAYMENT
	SelectedSeatIDs []uint64 `json:"selected_seat_ids,omitempty"` // valid in PICKING; ordered by selection
	OrderCode       string   `json:"order_code,omitempty"`        // valid in AWAITING_PAYMENT
}

// New returns an idle session for the requester.
func New(requesterID uint64) *PickSession {
	return &PickSession{RequesterID: requesterID, Stage: StageIdle}
}

// SetEvent moves the session into PICKING for the given event.
// Choosing an event while already picking switches events and clears
// the selection; a session awaiting payment must be reset first.
func (s *PickSession) SetEvent(eventID uint64) error {
	if s.Stage == StageAwaitingPayment {
		return ErrWrongStage
	}
	s.Stage = StagePicking
	s.EventID = eventID
	s.SelectedSeatIDs = nil
	return nil
}

// ToggleSeat adds the seat to the selection, or removes it when it is
// already selected (the second toggle is a no-op on inventory).  It
// reports whether the seat is selected after the call.
func (s *PickSession) ToggleSeat(seatID uint64) (bool, error) {
	if s.Stage != StagePicking {
		return false, ErrWrongStage
	}
	for i, id := range s.SelectedSeatIDs {
		if id == seatID {
			s.SelectedSeatIDs = append(s.SelectedSeatIDs[:i], s.SelectedSeatIDs[i+1:]...)
			return false, nil
		}
	}
	s.SelectedSeatIDs = append(s.SelectedSeatIDs, seatID)
	return true, nil
}

// BeginPayment moves the session to AWAITING_PAYMENT after the engine
// accepted the finalized selection, remembering the order code.
func (s *PickSession) BeginPayment(orderCode string) error {
	if s.Stage != StagePicking {
		return ErrWrongStage
	}
	s.Stage = StageAwaitingPayment
	s.OrderCode = orderCode
	s.SelectedSeatIDs = nil
	return nil
}

// Reset returns the session to IDLE from any stage, clearing all
// stage-specific fields.
func (s *PickSession) Reset() {
	s.Stage = StageIdle
	s.EventID = 0
	s.SelectedSeatIDs = nil
	s.OrderCode = ""
}
