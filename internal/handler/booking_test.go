package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bannnned/sea-cinema-booking/internal/catalog"
	"github.com/bannnned/sea-cinema-booking/internal/engine"
	"github.com/bannnned/sea-cinema-booking/internal/inventory"
	"github.com/bannnned/sea-cinema-booking/internal/model"
	"github.com/bannnned/sea-cinema-booking/internal/order"
	"github.com/bannnned/sea-cinema-booking/internal/session"
)

func newBookingHandler(t *testing.T) (*BookingHandler, *engine.Engine) {
	t.Helper()
	cat := catalog.New([]model.Event{
		{ID: 1, Title: "Evening Show", StartsAt: time.Date(2026, 9, 5, 19, 0, 0, 0, time.UTC)},
	})
	seats := make([]model.Seat, 0, 5)
	for n := 1; n <= 5; n++ {
		seats = append(seats, model.Seat{
			ID:         100 + uint64(n),
			EventID:    1,
			SeatNumber: uint32(n),
			Status:     model.SeatFree,
		})
	}
	n := 0
	gen := func() (string, error) {
		n++
		return fmt.Sprintf("CODE%04d", n), nil
	}
	eng := engine.New(cat, inventory.New(seats), order.NewStore(gen), nil, nil)
	sessions := session.NewStore(nil, time.Hour)
	return NewBookingHandler(eng, sessions, 60000), eng
}

// doJSON runs a handler against an echo context built from the given
// request pieces and returns the recorder.
func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestBookingFlowEndToEnd(t *testing.T) {
	h, eng := newBookingHandler(t)
	requester := map[string]string{"requester_id": "7"}

	rec := doJSON(t, h.SetEvent, http.MethodPut, "/v1/sessions/7/event", `{"event_id":1}`, requester)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetEvent status = %d, body %s", rec.Code, rec.Body)
	}

	for _, seat := range []string{`{"seat_id":101}`, `{"seat_id":102}`} {
		rec = doJSON(t, h.ToggleSeat, http.MethodPost, "/v1/sessions/7/seats/toggle", seat, requester)
		if rec.Code != http.StatusOK {
			t.Fatalf("ToggleSeat status = %d, body %s", rec.Code, rec.Body)
		}
	}

	rec = doJSON(t, h.Finalize, http.MethodPost, "/v1/sessions/7/finalize", "", requester)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Finalize status = %d, body %s", rec.Code, rec.Body)
	}
	var created struct {
		Order   model.Order         `json:"order"`
		Session session.PickSession `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode finalize response: %v", err)
	}
	if created.Order.AmountCents != 120000 {
		t.Errorf("order amount = %d, want 120000", created.Order.AmountCents)
	}
	if created.Session.Stage != session.StageAwaitingPayment || created.Session.OrderCode != created.Order.Code {
		t.Errorf("session after finalize = %+v", created.Session)
	}

	rec = doJSON(t, h.ConfirmPayment, http.MethodPost, "/v1/orders/"+created.Order.Code+"/payment",
		`{"proof":"1234"}`, map[string]string{"code": created.Order.Code})
	if rec.Code != http.StatusOK {
		t.Fatalf("ConfirmPayment status = %d, body %s", rec.Code, rec.Body)
	}
	ord, err := eng.Order(created.Order.Code)
	if err != nil || ord.PayStatus != model.PayPaid {
		t.Errorf("order after confirm = %+v, err %v", ord, err)
	}
}

func TestFinalizeConflictDropsStaleSeats(t *testing.T) {
	h, eng := newBookingHandler(t)

	// Another requester already holds seat 102.
	if _, err := eng.Finalize(context.Background(), 99, 1, []uint64{102}, 60000); err != nil {
		t.Fatalf("setup hold: %v", err)
	}

	requester := map[string]string{"requester_id": "7"}
	doJSON(t, h.SetEvent, http.MethodPut, "/v1/sessions/7/event", `{"event_id":1}`, requester)
	doJSON(t, h.ToggleSeat, http.MethodPost, "/v1/sessions/7/seats/toggle", `{"seat_id":102}`, requester)
	doJSON(t, h.ToggleSeat, http.MethodPost, "/v1/sessions/7/seats/toggle", `{"seat_id":103}`, requester)

	rec := doJSON(t, h.Finalize, http.MethodPost, "/v1/sessions/7/finalize", "", requester)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Finalize status = %d, want 409; body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Unavailable []uint64 `json:"unavailable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode conflict response: %v", err)
	}
	if len(resp.Unavailable) != 1 || resp.Unavailable[0] != 102 {
		t.Errorf("unavailable = %v, want [102]", resp.Unavailable)
	}

	// The stale seat is dropped; retrying immediately succeeds with
	// the surviving selection.
	rec = doJSON(t, h.Finalize, http.MethodPost, "/v1/sessions/7/finalize", "", requester)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry Finalize status = %d, body %s", rec.Code, rec.Body)
	}
	s, _ := eng.Seat(103)
	if s.Status != model.SeatHeld {
		t.Errorf("seat 103 = %s after retry, want HELD", s.Status)
	}
}

func TestToggleSeatRejectsForeignEventSeat(t *testing.T) {
	h, _ := newBookingHandler(t)
	requester := map[string]string{"requester_id": "7"}
	doJSON(t, h.SetEvent, http.MethodPut, "/v1/sessions/7/event", `{"event_id":1}`, requester)

	rec := doJSON(t, h.ToggleSeat, http.MethodPost, "/v1/sessions/7/seats/toggle", `{"seat_id":999}`, requester)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown seat toggle status = %d, want 404", rec.Code)
	}
}

func TestCancelPaidOrderRefused(t *testing.T) {
	h, eng := newBookingHandler(t)
	ord, _ := eng.Finalize(context.Background(), 7, 1, []uint64{101}, 60000)
	_, _ = eng.ConfirmPayment(context.Background(), ord.Code, "1234")

	rec := doJSON(t, h.Cancel, http.MethodDelete, "/v1/orders/"+ord.Code, "", map[string]string{"code": ord.Code})
	if rec.Code != http.StatusConflict {
		t.Errorf("Cancel paid order status = %d, want 409; body %s", rec.Code, rec.Body)
	}
}

func TestGetSessionReturnsIdleByDefault(t *testing.T) {
	h, _ := newBookingHandler(t)
	rec := doJSON(t, h.GetSession, http.MethodGet, "/v1/sessions/7", "", map[string]string{"requester_id": "7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("GetSession status = %d", rec.Code)
	}
	var s session.PickSession
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if s.RequesterID != 7 || s.Stage != session.StageIdle {
		t.Errorf("session = %+v, want idle for requester 7", s)
	}
}
