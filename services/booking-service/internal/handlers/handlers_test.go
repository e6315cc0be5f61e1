package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/autobook/libs/auth"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/storage/memstore"
)

var (
	secret = []byte("test-secret")
	now0   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type apiFixture struct {
	srv   *httptest.Server
	store *memstore.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memstore.New()
	store.PutService(model.Service{ID: "svc-1h", Name: "Oil change", DurationMinutes: 60, Price: "49.90", IsActive: true})
	store.PutUser(model.User{ID: "cust-1", FirstName: "Ada", Role: model.RoleCustomer, IsActive: true})
	store.PutUser(model.User{ID: "cust-2", FirstName: "Alan", Role: model.RoleCustomer, IsActive: true})
	store.PutUser(model.User{ID: "prov-1", FirstName: "Pat", Role: model.RoleProvider, IsActive: true})
	store.PutVehicle(model.Vehicle{ID: "veh-1", OwnerID: "cust-1", Make: "Toyota", Model: "Corolla", Year: 2019})
	store.PutVehicle(model.Vehicle{ID: "veh-2", OwnerID: "cust-2", Make: "Honda", Model: "Civic", Year: 2021})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return now0 }
	bookings := booking.NewService(calendar.DefaultPolicy(), booking.Deps{
		Services: store, Vehicles: store, Users: store, Appointments: store, Tx: store, Schedule: store,
		Logger: logger, Now: clock,
	})
	sched := schedule.NewService(store, store, logger, clock)

	mux := http.NewServeMux()
	New(bookings, sched, logger).Register(mux)
	srv := httptest.NewServer(auth.Middleware(secret)(mux))
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, store: store}
}

func (f *apiFixture) do(t *testing.T, userID, role, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if userID != "" {
		token, err := auth.Sign(secret, userID, role, time.Hour, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (f *apiFixture) create(t *testing.T, customer, vehicle, start string) string {
	t.Helper()
	resp, body := f.do(t, customer, "customer", http.MethodPost, "/api/v1/appointments", map[string]any{
		"service_id": "svc-1h", "vehicle_id": vehicle, "provider_id": "prov-1", "start_time": start,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	return body["id"].(string)
}

func TestCreateAndGet(t *testing.T) {
	f := newAPI(t)
	id := f.create(t, "cust-1", "veh-1", "2026-03-03T10:00:00Z")

	resp, body := f.do(t, "cust-1", "customer", http.MethodGet, "/api/v1/appointments/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2026-03-03T11:00:00Z", body["end_time"])
	assert.Equal(t, "prov-1", body["provider_id"])
	assert.Equal(t, "Oil change", body["service"].(map[string]any)["name"])

	resp, _ = f.do(t, "cust-2", "customer", http.MethodGet, "/api/v1/appointments/"+id, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, "admin", "admin", http.MethodGet, "/api/v1/appointments/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreate_ErrorStatuses(t *testing.T) {
	f := newAPI(t)
	f.create(t, "cust-1", "veh-1", "2026-03-03T10:00:00Z")

	cases := []struct {
		name   string
		body   map[string]any
		status int
		msg    string
	}{
		{"conflict", map[string]any{"service_id": "svc-1h", "vehicle_id": "veh-2", "provider_id": "prov-1", "start_time": "2026-03-03T10:30:00Z"}, http.StatusConflict, "choose another slot"},
		{"weekend", map[string]any{"service_id": "svc-1h", "vehicle_id": "veh-2", "start_time": "2026-03-07T10:00:00Z"}, http.StatusBadRequest, "no weekend bookings"},
		{"missing fields", map[string]any{"service_id": "svc-1h"}, http.StatusBadRequest, "missing required fields"},
		{"bad time", map[string]any{"service_id": "svc-1h", "vehicle_id": "veh-2", "start_time": "tomorrow"}, http.StatusBadRequest, "invalid start_time"},
		{"foreign vehicle", map[string]any{"service_id": "svc-1h", "vehicle_id": "veh-1", "start_time": "2026-03-04T10:00:00Z"}, http.StatusNotFound, "vehicle not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, "cust-2", "customer", http.MethodPost, "/api/v1/appointments", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, body["error"], tc.msg)
		})
	}
}

func TestRequiresAuthentication(t *testing.T) {
	f := newAPI(t)
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/v1/appointments", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateAndCancel(t *testing.T) {
	f := newAPI(t)
	id := f.create(t, "cust-1", "veh-1", "2026-03-03T10:00:00Z")
	path := "/api/v1/appointments/" + id

	resp, _ := f.do(t, "cust-1", "customer", http.MethodPatch, path, map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, "cust-1", "customer", http.MethodPatch, path, map[string]any{"created_at": "2020-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.do(t, "prov-1", "provider", http.MethodPatch, path, map[string]any{"status": "confirmed", "notes": "bring keys"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "bring keys", body["notes"])

	resp, body = f.do(t, "admin", "admin", http.MethodPatch, path, map[string]any{"provider_id": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Nil(t, body["provider_id"])

	resp, body = f.do(t, "cust-1", "customer", http.MethodPost, path+"/cancel", map[string]any{"reason": "car sold"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "car sold", body["cancellation_reason"])

	resp, body = f.do(t, "cust-1", "customer", http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, booking.ErrAlreadyCancelled.Msg, body["error"])
}

func TestListFilters(t *testing.T) {
	f := newAPI(t)
	a := f.create(t, "cust-1", "veh-1", "2026-03-03T10:00:00Z")
	b := f.create(t, "cust-1", "veh-1", "2026-03-04T10:00:00Z")

	resp, body := f.do(t, "cust-1", "customer", http.MethodGet, "/api/v1/appointments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["appointments"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, b, items[0].(map[string]any)["id"])

	resp, body = f.do(t, "cust-1", "customer", http.MethodGet, "/api/v1/appointments?start_date=2026-03-03&end_date=2026-03-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items = body["appointments"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, a, items[0].(map[string]any)["id"])

	resp, body = f.do(t, "cust-2", "customer", http.MethodGet, "/api/v1/appointments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["appointments"])

	resp, _ = f.do(t, "cust-1", "customer", http.MethodGet, "/api/v1/appointments?end_date=soon", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlots(t *testing.T) {
	f := newAPI(t)
	f.create(t, "cust-1", "veh-1", "2026-03-03T10:00:00Z")

	resp, body := f.do(t, "cust-2", "customer", http.MethodGet, "/api/v1/slots?service_id=svc-1h&date=2026-03-03&provider_id=prov-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	slots := body["slots"].([]any)
	require.Len(t, slots, 20)
	busy := 0
	for _, s := range slots {
		if !s.(map[string]any)["available"].(bool) {
			busy++
		}
	}
	assert.Equal(t, 3, busy)

	resp, _ = f.do(t, "cust-2", "customer", http.MethodGet, "/api/v1/slots?service_id=svc-1h&date=03/03/2026", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, "cust-2", "customer", http.MethodGet, "/api/v1/slots?service_id=missing&date=2026-03-03", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAvailabilityEndpoints(t *testing.T) {
	f := newAPI(t)
	path := "/api/v1/providers/prov-1/availability"

	resp, body := f.do(t, "prov-1", "provider", http.MethodPut, path, map[string]any{"day_of_week": 0, "start_time": "09:00", "end_time": "17:00"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["is_available"])

	resp, _ = f.do(t, "cust-1", "customer", http.MethodPut, path, map[string]any{"day_of_week": 1, "start_time": "09:00", "end_time": "17:00"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, "prov-1", "provider", http.MethodPut, path, map[string]any{"day_of_week": 1, "start_time": "17:00", "end_time": "09:00"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, "cust-1", "customer", http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["availability"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "09:00", items[0].(map[string]any)["start_time"])

	resp, _ = f.do(t, "prov-1", "provider", http.MethodDelete, path+"/0", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, "prov-1", "provider", http.MethodDelete, path+"/0", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWriteError_Persistence(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rec := httptest.NewRecorder()
	writeError(rec, logger, &booking.Error{Kind: booking.KindPersistence, Msg: "busy", Retryable: true})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	writeError(rec, logger, &booking.Error{Kind: booking.KindPersistence, Msg: "insert", Err: errors.New("disk full")})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")

	rec = httptest.NewRecorder()
	writeError(rec, logger, errors.New("raw"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
