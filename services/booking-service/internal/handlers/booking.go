package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"activityhub/services/booking-service/internal/admission"
	"activityhub/services/booking-service/internal/calendar"
	"activityhub/services/booking-service/internal/model"
	"activityhub/services/booking-service/internal/storage"
	"activityhub/services/booking-service/internal/tier"

	"github.com/google/uuid"
)

// Identity headers injected by the gateway after authentication.
const (
	UserIDHeader   = "X-User-Id"
	UserTierHeader = "X-User-Tier"
)

// Admitter is the admission controller surface the handler drives.
type Admitter interface {
	Admit(ctx context.Context, req admission.Request) (admission.Result, error)
	Preview(ctx context.Context, req admission.Request) (admission.Result, error)
}

// BookingStore covers the ledger reads and writes the handler performs
// outside the admission path.
type BookingStore interface {
	GetActivity(ctx context.Context, activityID string) (model.Activity, error)
	GetMemberTier(ctx context.Context, userID string) (string, bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]storage.BookingWithActivity, error)
	CancelOwn(ctx context.Context, userID, bookingID string) (model.Booking, error)
}

type BookingHandler struct {
	admitter Admitter
	store    BookingStore
	logger   *slog.Logger
}

func NewBookingHandler(admitter Admitter, store BookingStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{admitter: admitter, store: store, logger: logger}
}

type createBookingRequest struct {
	ActivityID string `json:"activity_id"`
}

type bookingLinks struct {
	GoogleCalendar string `json:"google_calendar"`
	ICS            string `json:"ics"`
}

type quotaDetail struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

type createBookingResponse struct {
	BookingID string        `json:"booking_id"`
	Links     *bookingLinks `json:"links,omitempty"`
	Quota     *quotaDetail  `json:"quota,omitempty"`
}

type errorResponse struct {
	Error                string   `json:"error"`
	Code                 string   `json:"code"`
	AllowedTiers         []string `json:"allowed_tiers,omitempty"`
	ConflictingBookingID string   `json:"conflicting_booking_id,omitempty"`
	Used                 *int     `json:"used,omitempty"`
	Limit                *int     `json:"limit,omitempty"`
	Remaining            *int     `json:"remaining,omitempty"`
}

// Bookings dispatches /api/v1/bookings: POST creates, GET lists.
func (h *BookingHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	activityID := strings.TrimSpace(req.ActivityID)
	if err := uuid.Validate(activityID); err != nil {
		http.Error(w, "invalid activity_id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	memberTier := h.resolveTier(ctx, userID, r)

	res, err := h.admitter.Admit(ctx, admission.Request{
		UserID:     userID,
		Tier:       memberTier,
		ActivityID: activityID,
	})
	if err != nil {
		h.logger.Error("admission failed", "err", err, "user_id", userID, "activity_id", activityID)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "booking ledger unavailable, retry later",
			Code:  "STORAGE_UNAVAILABLE",
		})
		return
	}

	if !res.Approved() {
		h.writeRejection(w, res)
		return
	}

	resp := createBookingResponse{BookingID: res.BookingID}
	if res.Quota != nil && !res.Quota.Unlimited {
		// The approval consumed one slot.
		resp.Quota = &quotaDetail{
			Used:      res.Quota.Used + 1,
			Limit:     res.Quota.Limit,
			Remaining: res.Quota.Remaining - 1,
		}
	}
	if activity, err := h.store.GetActivity(ctx, activityID); err == nil {
		now := time.Now().UTC()
		resp.Links = &bookingLinks{
			GoogleCalendar: calendar.GoogleLink(activity.Title, activity.Description, activity.Location, activity.StartTime, activity.EndTime),
			ICS:            calendar.ICS(activity.Title, activity.Description, activity.Location, activity.StartTime, activity.EndTime, now),
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Preview runs the admission checks without committing, for "can I book
// this?" UI. Repeated calls with no intervening commits return the same
// result.
func (h *BookingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	activityID := strings.TrimSpace(r.URL.Query().Get("activity_id"))
	if err := uuid.Validate(activityID); err != nil {
		http.Error(w, "invalid activity_id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	res, err := h.admitter.Preview(ctx, admission.Request{
		UserID:     userID,
		Tier:       h.resolveTier(ctx, userID, r),
		ActivityID: activityID,
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "booking ledger unavailable, retry later",
			Code:  "STORAGE_UNAVAILABLE",
		})
		return
	}

	type previewResponse struct {
		Outcome string         `json:"outcome"`
		Reason  string         `json:"reason,omitempty"`
		Detail  *errorResponse `json:"detail,omitempty"`
	}
	resp := previewResponse{Outcome: string(res.Outcome)}
	if res.Reason != "" {
		resp.Reason = string(res.Reason)
		detail := rejectionDetail(res)
		resp.Detail = &detail
	}
	writeJSON(w, http.StatusOK, resp)
}

type listBookingItem struct {
	BookingID     string `json:"booking_id"`
	ActivityID    string `json:"activity_id"`
	ActivityTitle string `json:"activity_title"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	BookedAt      string `json:"booked_at"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	bookings, err := h.store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]listBookingItem, 0, len(bookings))
	for _, b := range bookings {
		item := listBookingItem{
			BookingID:     b.ID,
			ActivityID:    b.ActivityID,
			ActivityTitle: b.ActivityTitle,
			StartTime:     b.ActivityStart.UTC().Format(time.RFC3339),
			EndTime:       b.ActivityEnd.UTC().Format(time.RFC3339),
			Status:        string(b.Status),
			BookedAt:      b.BookedAt.UTC().Format(time.RFC3339),
		}
		if b.CancelledAt != nil {
			item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

type cancelBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type cancelBookingResponse struct {
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at,omitempty"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	bookingID := strings.TrimSpace(req.BookingID)
	if err := uuid.Validate(bookingID); err != nil {
		http.Error(w, "invalid booking_id", http.StatusBadRequest)
		return
	}

	booking, err := h.store.CancelOwn(r.Context(), userID, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBookingNotFound):
			http.Error(w, "booking not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrNotCancellable):
			http.Error(w, "booking cannot be cancelled", http.StatusConflict)
		default:
			h.logger.Error("cancel failed", "err", err, "user_id", userID, "booking_id", bookingID)
			http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		}
		return
	}

	resp := cancelBookingResponse{BookingID: booking.ID, Status: string(booking.Status)}
	if booking.CancelledAt != nil {
		resp.CancelledAt = booking.CancelledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// resolveTier prefers the event-fed member tier cache and falls back to the
// gateway-supplied tier header. Unknown values land on the documented ad-hoc
// fallback.
func (h *BookingHandler) resolveTier(ctx context.Context, userID string, r *http.Request) tier.Tier {
	raw, found, err := h.store.GetMemberTier(ctx, userID)
	if err != nil {
		h.logger.Warn("member tier lookup failed, using header", "err", err, "user_id", userID)
		found = false
	}
	if !found {
		raw = strings.TrimSpace(r.Header.Get(UserTierHeader))
	}
	if raw == "" {
		return tier.AdHoc
	}
	t, known := tier.Normalize(raw)
	if !known {
		h.logger.Warn("unknown membership tier, falling back to ad-hoc", "tier", raw, "user_id", userID)
	}
	return t
}

func (h *BookingHandler) writeRejection(w http.ResponseWriter, res admission.Result) {
	detail := rejectionDetail(res)
	switch res.Outcome {
	case admission.OutcomeActivityNotFound:
		writeJSON(w, http.StatusNotFound, detail)
		return
	case admission.OutcomeRejected:
		switch res.Reason {
		case admission.ReasonTierNotAllowed, admission.ReasonQuotaExceeded:
			writeJSON(w, http.StatusForbidden, detail)
		case admission.ReasonScheduleConflict:
			writeJSON(w, http.StatusConflict, detail)
		default:
			writeJSON(w, http.StatusForbidden, detail)
		}
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unexpected admission outcome", Code: "INTERNAL"})
}

func rejectionDetail(res admission.Result) errorResponse {
	switch {
	case res.Outcome == admission.OutcomeActivityNotFound:
		return errorResponse{Error: "activity not found", Code: "ACTIVITY_NOT_FOUND"}
	case res.Reason == admission.ReasonTierNotAllowed:
		names := make([]string, 0, len(res.AllowedTiers))
		for _, t := range res.AllowedTiers {
			names = append(names, string(t))
		}
		return errorResponse{
			Error:        "This activity is only available for: " + strings.Join(names, ", "),
			Code:         "TIER_NOT_ALLOWED",
			AllowedTiers: names,
		}
	case res.Reason == admission.ReasonScheduleConflict:
		out := errorResponse{
			Error: "You are already busy at this time.",
			Code:  "SCHEDULE_CONFLICT",
		}
		if res.Conflict != nil {
			out.ConflictingBookingID = res.Conflict.BookingID
		}
		return out
	case res.Reason == admission.ReasonQuotaExceeded:
		out := errorResponse{
			Error: "You have reached your weekly booking limit.",
			Code:  "QUOTA_EXCEEDED",
		}
		if res.Quota != nil {
			out.Error = fmt.Sprintf("You have reached your weekly booking limit of %d. Current bookings: %d", res.Quota.Limit, res.Quota.Used)
			out.Used = intp(res.Quota.Used)
			out.Limit = intp(res.Quota.Limit)
			out.Remaining = intp(res.Quota.Remaining)
		}
		return out
	}
	return errorResponse{Error: "rejected", Code: string(res.Reason)}
}

func intp(v int) *int { return &v }

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
