package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"activityhub/services/booking-service/internal/admission"
	"activityhub/services/booking-service/internal/model"
	"activityhub/services/booking-service/internal/schedule"
	"activityhub/services/booking-service/internal/storage"
	"activityhub/services/booking-service/internal/tier"
)

const (
	testActivityID = "7b68e6de-2f8a-4f6e-9d5c-1a2b3c4d5e6f"
	testBookingID  = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

type fakeAdmitter struct {
	admitRes   admission.Result
	admitErr   error
	previewRes admission.Result
	previewErr error
	lastReq    admission.Request
}

func (f *fakeAdmitter) Admit(_ context.Context, req admission.Request) (admission.Result, error) {
	f.lastReq = req
	return f.admitRes, f.admitErr
}

func (f *fakeAdmitter) Preview(_ context.Context, req admission.Request) (admission.Result, error) {
	f.lastReq = req
	return f.previewRes, f.previewErr
}

type fakeStore struct {
	activity    model.Activity
	activityErr error
	memberTier  string
	tierFound   bool
	tierErr     error
	listed      []storage.BookingWithActivity
	listErr     error
	cancelled   model.Booking
	cancelErr   error
}

func (f *fakeStore) GetActivity(context.Context, string) (model.Activity, error) {
	return f.activity, f.activityErr
}

func (f *fakeStore) GetMemberTier(context.Context, string) (string, bool, error) {
	return f.memberTier, f.tierFound, f.tierErr
}

func (f *fakeStore) ListByUser(context.Context, string, int) ([]storage.BookingWithActivity, error) {
	return f.listed, f.listErr
}

func (f *fakeStore) CancelOwn(context.Context, string, string) (model.Booking, error) {
	return f.cancelled, f.cancelErr
}

func newTestHandler(admitter *fakeAdmitter, store *fakeStore) *BookingHandler {
	return NewBookingHandler(admitter, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func postBooking(h *BookingHandler, userID, tierHeader, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	if tierHeader != "" {
		req.Header.Set(UserTierHeader, tierHeader)
	}
	rec := httptest.NewRecorder()
	h.Bookings(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not the error shape: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestCreateRequiresIdentity(t *testing.T) {
	h := newTestHandler(&fakeAdmitter{}, &fakeStore{})
	rec := postBooking(h, "", "", `{"activity_id":"`+testActivityID+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	h := newTestHandler(&fakeAdmitter{}, &fakeStore{})

	if rec := postBooking(h, "u1", "", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: status = %d, want 400", rec.Code)
	}
	if rec := postBooking(h, "u1", "", `{"activity_id":"not-a-uuid"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad activity id: status = %d, want 400", rec.Code)
	}
}

func TestCreateApproved(t *testing.T) {
	start := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	admitter := &fakeAdmitter{
		admitRes: admission.Result{
			Outcome:   admission.OutcomeApproved,
			BookingID: testBookingID,
			Quota:     &admission.QuotaStatus{Limit: 2, Used: 0, Remaining: 2},
		},
	}
	store := &fakeStore{
		activity: model.Activity{
			ID:        testActivityID,
			Title:     "Yoga",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		},
	}
	h := newTestHandler(admitter, store)

	rec := postBooking(h, "u1", "twice-a-week", `{"activity_id":"`+testActivityID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\n%s", rec.Code, rec.Body.String())
	}
	if admitter.lastReq.Tier != tier.TwiceAWeek {
		t.Fatalf("admitted tier = %q, want twice-a-week", admitter.lastReq.Tier)
	}

	var resp createBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.BookingID != testBookingID {
		t.Fatalf("booking_id = %q", resp.BookingID)
	}
	if resp.Quota == nil || resp.Quota.Used != 1 || resp.Quota.Remaining != 1 {
		t.Fatalf("quota = %+v, want post-commit used 1 remaining 1", resp.Quota)
	}
	if resp.Links == nil || !strings.Contains(resp.Links.GoogleCalendar, "calendar.google.com") {
		t.Fatalf("links = %+v, want calendar links", resp.Links)
	}
	if !strings.Contains(resp.Links.ICS, "BEGIN:VCALENDAR") {
		t.Fatal("ics link should carry a VCALENDAR payload")
	}
}

func TestCreateRejectionStatuses(t *testing.T) {
	tests := []struct {
		name       string
		res        admission.Result
		wantStatus int
		wantCode   string
	}{
		{
			"activity not found",
			admission.Result{Outcome: admission.OutcomeActivityNotFound},
			http.StatusNotFound, "ACTIVITY_NOT_FOUND",
		},
		{
			"tier not allowed",
			admission.Result{
				Outcome:      admission.OutcomeRejected,
				Reason:       admission.ReasonTierNotAllowed,
				AllowedTiers: []tier.Tier{tier.OnceAWeek, tier.TwiceAWeek},
			},
			http.StatusForbidden, "TIER_NOT_ALLOWED",
		},
		{
			"schedule conflict",
			admission.Result{
				Outcome:  admission.OutcomeRejected,
				Reason:   admission.ReasonScheduleConflict,
				Conflict: &schedule.Booked{BookingID: "bk-1", ActivityID: "other"},
			},
			http.StatusConflict, "SCHEDULE_CONFLICT",
		},
		{
			"quota exceeded",
			admission.Result{
				Outcome: admission.OutcomeRejected,
				Reason:  admission.ReasonQuotaExceeded,
				Quota:   &admission.QuotaStatus{Limit: 1, Used: 1},
			},
			http.StatusForbidden, "QUOTA_EXCEEDED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&fakeAdmitter{admitRes: tc.res}, &fakeStore{})
			rec := postBooking(h, "u1", "", `{"activity_id":"`+testActivityID+`"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d\n%s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", got.Code, tc.wantCode)
			}
		})
	}
}

func TestCreateRejectionDetails(t *testing.T) {
	h := newTestHandler(&fakeAdmitter{admitRes: admission.Result{
		Outcome:      admission.OutcomeRejected,
		Reason:       admission.ReasonTierNotAllowed,
		AllowedTiers: []tier.Tier{tier.OnceAWeek, tier.TwiceAWeek},
	}}, &fakeStore{})
	rec := postBooking(h, "u1", "", `{"activity_id":"`+testActivityID+`"}`)
	got := decodeError(t, rec)
	if !strings.Contains(got.Error, "only available for: once-a-week, twice-a-week") {
		t.Fatalf("error = %q", got.Error)
	}
	if len(got.AllowedTiers) != 2 {
		t.Fatalf("allowed_tiers = %v", got.AllowedTiers)
	}

	h = newTestHandler(&fakeAdmitter{admitRes: admission.Result{
		Outcome: admission.OutcomeRejected,
		Reason:  admission.ReasonQuotaExceeded,
		Quota:   &admission.QuotaStatus{Limit: 2, Used: 2},
	}}, &fakeStore{})
	rec = postBooking(h, "u1", "", `{"activity_id":"`+testActivityID+`"}`)
	got = decodeError(t, rec)
	if !strings.Contains(got.Error, "weekly booking limit of 2") || !strings.Contains(got.Error, "Current bookings: 2") {
		t.Fatalf("error = %q", got.Error)
	}
	if got.Used == nil || *got.Used != 2 || got.Limit == nil || *got.Limit != 2 {
		t.Fatalf("quota fields = %+v", got)
	}
}

func TestCreateStorageFault(t *testing.T) {
	h := newTestHandler(&fakeAdmitter{admitErr: errors.New("connection refused")}, &fakeStore{})
	rec := postBooking(h, "u1", "", `{"activity_id":"`+testActivityID+`"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != "STORAGE_UNAVAILABLE" {
		t.Fatalf("code = %q, want STORAGE_UNAVAILABLE", got.Code)
	}
}

func TestTierResolution(t *testing.T) {
	t.Run("cache beats header", func(t *testing.T) {
		admitter := &fakeAdmitter{admitRes: admission.Result{Outcome: admission.OutcomeApproved, BookingID: testBookingID}}
		store := &fakeStore{memberTier: "once-a-week", tierFound: true, activityErr: errors.New("skip links")}
		h := newTestHandler(admitter, store)
		postBooking(h, "u1", "twice-a-week", `{"activity_id":"`+testActivityID+`"}`)
		if admitter.lastReq.Tier != tier.OnceAWeek {
			t.Fatalf("tier = %q, want cached once-a-week", admitter.lastReq.Tier)
		}
	})

	t.Run("unknown tier falls back to ad-hoc", func(t *testing.T) {
		admitter := &fakeAdmitter{admitRes: admission.Result{Outcome: admission.OutcomeApproved, BookingID: testBookingID}}
		store := &fakeStore{activityErr: errors.New("skip links")}
		h := newTestHandler(admitter, store)
		postBooking(h, "u1", "platinum", `{"activity_id":"`+testActivityID+`"}`)
		if admitter.lastReq.Tier != tier.AdHoc {
			t.Fatalf("tier = %q, want ad-hoc fallback", admitter.lastReq.Tier)
		}
	})

	t.Run("no tier anywhere means ad-hoc", func(t *testing.T) {
		admitter := &fakeAdmitter{admitRes: admission.Result{Outcome: admission.OutcomeApproved, BookingID: testBookingID}}
		store := &fakeStore{activityErr: errors.New("skip links")}
		h := newTestHandler(admitter, store)
		postBooking(h, "u1", "", `{"activity_id":"`+testActivityID+`"}`)
		if admitter.lastReq.Tier != tier.AdHoc {
			t.Fatalf("tier = %q, want ad-hoc", admitter.lastReq.Tier)
		}
	})
}

func TestPreview(t *testing.T) {
	admitter := &fakeAdmitter{previewRes: admission.Result{
		Outcome: admission.OutcomeRejected,
		Reason:  admission.ReasonScheduleConflict,
		Conflict: &schedule.Booked{
			BookingID:  "bk-9",
			ActivityID: "other",
		},
	}}
	h := newTestHandler(admitter, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/preview?activity_id="+testActivityID, nil)
	req.Header.Set(UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	h.Preview(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a preview rejection", rec.Code)
	}
	var resp struct {
		Outcome string         `json:"outcome"`
		Reason  string         `json:"reason"`
		Detail  *errorResponse `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Outcome != "rejected" || resp.Reason != "schedule_conflict" {
		t.Fatalf("outcome/reason = %q/%q", resp.Outcome, resp.Reason)
	}
	if resp.Detail == nil || resp.Detail.ConflictingBookingID != "bk-9" {
		t.Fatalf("detail = %+v", resp.Detail)
	}
}

func TestPreviewRejectsNonGet(t *testing.T) {
	h := newTestHandler(&fakeAdmitter{}, &fakeStore{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/preview", nil)
	req.Header.Set(UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestList(t *testing.T) {
	cancelledAt := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{listed: []storage.BookingWithActivity{
		{
			Booking: model.Booking{
				ID:         "bk-1",
				ActivityID: testActivityID,
				Status:     model.StatusConfirmed,
				BookedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			},
			ActivityTitle: "Yoga",
			ActivityStart: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
			ActivityEnd:   time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC),
		},
		{
			Booking: model.Booking{
				ID:          "bk-2",
				ActivityID:  testActivityID,
				Status:      model.StatusCancelled,
				BookedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				CancelledAt: &cancelledAt,
			},
			ActivityTitle: "Climbing",
			ActivityStart: time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC),
			ActivityEnd:   time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC),
		},
	}}
	h := newTestHandler(&fakeAdmitter{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set(UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	h.Bookings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var items []listBookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ActivityTitle != "Yoga" || items[0].Status != "confirmed" {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[1].CancelledAt == "" {
		t.Fatal("cancelled booking should report cancelled_at")
	}
}

func TestCancel(t *testing.T) {
	cancelledAt := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		store := &fakeStore{cancelled: model.Booking{
			ID:          testBookingID,
			Status:      model.StatusCancelled,
			CancelledAt: &cancelledAt,
		}}
		h := newTestHandler(&fakeAdmitter{}, store)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/cancel", strings.NewReader(`{"booking_id":"`+testBookingID+`"}`))
		req.Header.Set(UserIDHeader, "u1")
		rec := httptest.NewRecorder()
		h.Cancel(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
		}
		var resp cancelBookingResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if resp.Status != "cancelled" || resp.CancelledAt == "" {
			t.Fatalf("response = %+v", resp)
		}
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestHandler(&fakeAdmitter{}, &fakeStore{cancelErr: storage.ErrBookingNotFound})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/cancel", strings.NewReader(`{"booking_id":"`+testBookingID+`"}`))
		req.Header.Set(UserIDHeader, "u1")
		rec := httptest.NewRecorder()
		h.Cancel(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("not cancellable", func(t *testing.T) {
		h := newTestHandler(&fakeAdmitter{}, &fakeStore{cancelErr: storage.ErrNotCancellable})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/cancel", strings.NewReader(`{"booking_id":"`+testBookingID+`"}`))
		req.Header.Set(UserIDHeader, "u1")
		rec := httptest.NewRecorder()
		h.Cancel(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})
}
