package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduler-api/internal/middleware"
	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository/memory"
	"github.com/clinicore/scheduler-api/internal/service/availability"
	scheduleservice "github.com/clinicore/scheduler-api/internal/service/schedule"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

type testAPI struct {
	engine   *gin.Engine
	doctorID uuid.UUID
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scheduleRepo := memory.NewScheduleRepository()
	appointmentRepo := memory.NewAppointmentRepository()
	doctorRepo := memory.NewDoctorRepository()

	doctor := &model.Doctor{Name: "Dr. Osei", Email: "osei@clinic.test"}
	require.NoError(t, doctorRepo.Create(context.Background(), doctor))

	scheduleSvc := scheduleservice.NewService(scheduleRepo, doctorRepo)
	availabilitySvc := availability.NewService(scheduleRepo, appointmentRepo,
		availability.WithClock(func() time.Time { return monday.Add(-24 * time.Hour) }))

	engine := gin.New()
	engine.Use(middleware.ErrorHandler())
	NewHandler(scheduleSvc, availabilitySvc).RegisterRoutes(engine.Group("/api/v1"))

	return &testAPI{engine: engine, doctorID: doctor.ID}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testAPI) putSchedule(t *testing.T) {
	t.Helper()

	w := a.do(t, http.MethodPut, "/api/v1/doctors/"+a.doctorID.String()+"/schedule", model.UpsertScheduleRequest{
		WeeklyAvailability: map[string][]model.TimeRangeRequest{
			"1": {{Start: "09:00", End: "12:00"}},
		},
		SlotDurationMinutes: 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpsertScheduleEndpoint(t *testing.T) {
	api := setupAPI(t)
	api.putSchedule(t)

	w := api.do(t, http.MethodGet, "/api/v1/doctors/"+api.doctorID.String()+"/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.DoctorScheduleTemplate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.WeeklyAvailability[time.Monday], 1)
	assert.Equal(t, model.NewTimeOfDay(9, 0), resp.Data.WeeklyAvailability[time.Monday][0].Start)
	assert.Equal(t, 30, resp.Data.SlotDurationMinutes)
}

func TestUpsertScheduleEndpointRejectsBadInput(t *testing.T) {
	api := setupAPI(t)
	base := "/api/v1/doctors/" + api.doctorID.String() + "/schedule"

	w := api.do(t, http.MethodPut, base, model.UpsertScheduleRequest{
		WeeklyAvailability:  map[string][]model.TimeRangeRequest{"7": {{Start: "09:00", End: "12:00"}}},
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid weekday")

	w = api.do(t, http.MethodPut, base, model.UpsertScheduleRequest{
		WeeklyAvailability:  map[string][]model.TimeRangeRequest{"1": {{Start: "midnight", End: "12:00"}}},
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, base, model.UpsertScheduleRequest{
		WeeklyAvailability: map[string][]model.TimeRangeRequest{
			"1": {{Start: "09:00", End: "12:00"}, {Start: "11:00", End: "14:00"}},
		},
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TEMPLATE")

	w = api.do(t, http.MethodPut, "/api/v1/doctors/not-a-uuid/schedule", model.UpsertScheduleRequest{
		WeeklyAvailability:  map[string][]model.TimeRangeRequest{"1": {{Start: "09:00", End: "12:00"}}},
		SlotDurationMinutes: 30,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAvailabilityEndpoint(t *testing.T) {
	api := setupAPI(t)
	api.putSchedule(t)

	path := fmt.Sprintf("/api/v1/doctors/%s/availability?start_date=2026-03-02&end_date=2026-03-03", api.doctorID)
	w := api.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []model.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 6)
	for _, slot := range resp.Data {
		assert.True(t, slot.IsAvailable)
	}
}

func TestGetAvailabilityEndpointValidation(t *testing.T) {
	api := setupAPI(t)
	api.putSchedule(t)
	base := "/api/v1/doctors/" + api.doctorID.String() + "/availability"

	w := api.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing start_date")

	w = api.do(t, http.MethodGet, base+"?start_date=03/02/2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, base+"?start_date=2026-03-02&end_date=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_RANGE")

	w = api.do(t, http.MethodGet, "/api/v1/doctors/"+uuid.NewString()+"/availability?start_date=2026-03-02", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOverrideEndpoints(t *testing.T) {
	api := setupAPI(t)
	api.putSchedule(t)
	base := "/api/v1/doctors/" + api.doctorID.String() + "/schedule/overrides"

	w := api.do(t, http.MethodPost, base, model.AddOverrideRequest{
		Date: "2026-03-02",
		Type: model.OverrideUnavailable,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The blocked date resolves to no slots.
	w = api.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/doctors/%s/availability?start_date=2026-03-02", api.doctorID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []model.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)

	// Duplicate override for the same date.
	w = api.do(t, http.MethodPost, base, model.AddOverrideRequest{
		Date: "2026-03-02",
		Type: model.OverrideUnavailable,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_OVERRIDE")

	w = api.do(t, http.MethodDelete, base+"/2026-03-02", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodDelete, base+"/2026-03-02", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
