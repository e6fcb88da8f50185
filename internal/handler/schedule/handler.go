package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/scheduler-api/internal/handler"
	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/service/availability"
	"github.com/clinicore/scheduler-api/internal/service/schedule"
)

type Handler struct {
	scheduleSvc     *schedule.Service
	availabilitySvc *availability.Service
}

func NewHandler(scheduleSvc *schedule.Service, availabilitySvc *availability.Service) *Handler {
	return &Handler{
		scheduleSvc:     scheduleSvc,
		availabilitySvc: availabilitySvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("/:id/availability", h.GetAvailability)
		doctors.GET("/:id/schedule", h.GetSchedule)
		doctors.PUT("/:id/schedule", h.UpsertSchedule)
		doctors.POST("/:id/schedule/overrides", h.AddOverride)
		doctors.DELETE("/:id/schedule/overrides/:date", h.RemoveOverride)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	startDate, err := model.ParseDate(c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start_date, expected YYYY-MM-DD"))
		return
	}

	endDate := startDate
	if s := c.Query("end_date"); s != "" {
		endDate, err = model.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end_date, expected YYYY-MM-DD"))
			return
		}
	}

	slots, err := h.availabilitySvc.ResolveSlots(c.Request.Context(), doctorID, startDate, endDate)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) GetSchedule(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	tmpl, err := h.scheduleSvc.GetTemplate(c.Request.Context(), doctorID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) UpsertSchedule(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	var req model.UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tmpl, err := templateFromRequest(doctorID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.scheduleSvc.UpsertWeeklyAvailability(c.Request.Context(), tmpl)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) AddOverride(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	var req model.AddOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	date, err := model.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
		return
	}

	ranges, err := parseRanges(req.Ranges)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	override, err := h.scheduleSvc.AddOverride(c.Request.Context(), doctorID, date, req.Type, ranges)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(override))
}

func (h *Handler) RemoveOverride(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
		return
	}

	if err := h.scheduleSvc.RemoveOverride(c.Request.Context(), doctorID, date); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func templateFromRequest(doctorID uuid.UUID, req *model.UpsertScheduleRequest) (*model.DoctorScheduleTemplate, error) {
	weekly := make(model.WeeklyAvailability, len(req.WeeklyAvailability))
	for dayStr, rangeReqs := range req.WeeklyAvailability {
		dayNum, err := strconv.Atoi(dayStr)
		if err != nil || dayNum < 0 || dayNum > 6 {
			return nil, &weekdayError{dayStr}
		}
		ranges, err := parseRanges(rangeReqs)
		if err != nil {
			return nil, err
		}
		weekly[time.Weekday(dayNum)] = ranges
	}

	tmpl := &model.DoctorScheduleTemplate{
		DoctorID:            doctorID,
		WeeklyAvailability:  weekly,
		SlotDurationMinutes: req.SlotDurationMinutes,
	}

	if req.EffectiveFrom != "" {
		from, err := model.ParseDate(req.EffectiveFrom)
		if err != nil {
			return nil, err
		}
		tmpl.EffectiveFrom = &from
	}
	if req.EffectiveTo != "" {
		to, err := model.ParseDate(req.EffectiveTo)
		if err != nil {
			return nil, err
		}
		tmpl.EffectiveTo = &to
	}

	return tmpl, nil
}

func parseRanges(reqs []model.TimeRangeRequest) ([]model.TimeRange, error) {
	ranges := make([]model.TimeRange, 0, len(reqs))
	for _, r := range reqs {
		start, err := model.ParseTimeOfDay(r.Start)
		if err != nil {
			return nil, err
		}
		end, err := model.ParseTimeOfDay(r.End)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, model.TimeRange{Start: start, End: end})
	}
	return ranges, nil
}

type weekdayError struct {
	day string
}

func (e *weekdayError) Error() string {
	return "invalid weekday " + e.day + ", expected 0-6"
}
