package handler

import (
	"net/http"

	"github.com/sirsanndy/room-booking-sub001/internal/holiday/service"
	httputil "github.com/sirsanndy/room-booking-sub001/pkg/http"
	"github.com/sirsanndy/room-booking-sub001/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type HolidayHandler struct {
	service service.HolidayService
	log     *logger.Logger
}

func NewHolidayHandler(service service.HolidayService, log *logger.Logger) *HolidayHandler {
	return &HolidayHandler{
		service: service,
		log:     log,
	}
}

func (h *HolidayHandler) GetByYear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	year, err := httputil.ExtractYear(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByYear", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	holidays, err := h.service.GetByYear(r.Context(), year)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByYear", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, holidays); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByYear", "operation", "WriteSuccess", "error", err)
	}
}

func (h *HolidayHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/holidays", h.GetByYear)
}
