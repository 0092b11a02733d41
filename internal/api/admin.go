package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/repository/base"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.AppointmentFilter{
		TeacherName: query.Get("teacher"),
		Status:      model.AppointmentStatus(query.Get("status")),
	}

	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if value := query.Get("from"); value != "" {
		from, err := parseTime(value, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		filter.From = &from
	}
	if value := query.Get("to"); value != "" {
		to, err := parseTime(value, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		filter.To = &to
	}

	appointments, err := h.appointments.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	appointment, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get appointment", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if appointment == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

type updateStatusRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

// UpdateAppointmentStatus меняет только локальный статус, событие в календаре не трогает
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.appointments.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, base.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("Failed to update appointment status", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("Appointment status updated",
		zap.String("id", id),
		zap.String("status", string(req.Status)),
		zap.String("admin", AdminFromContext(r.Context())))

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
}

type reconcileResponse struct {
	Orphans []service.OrphanEvent `json:"orphans"`
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.reconciler.Run(r.Context())
	if err != nil {
		h.schedulingError(w, "reconcile", err)
		return
	}
	if orphans == nil {
		orphans = []service.OrphanEvent{}
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Orphans: orphans})
}

// TeacherWeek отдаёт неделю учителя картинкой PNG
func (h *Handler) TeacherWeek(w http.ResponseWriter, r *http.Request) {
	if h.weeks == nil {
		writeError(w, http.StatusNotImplemented, "week rendering is not configured")
		return
	}

	name := mux.Vars(r)["name"]
	weekOf := time.Now().In(h.location)
	if value := r.URL.Query().Get("date"); value != "" {
		parsed, err := parseDate(value, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		weekOf = parsed
	}

	image, err := h.weeks.Render(r.Context(), name, weekOf)
	if err != nil {
		h.schedulingError(w, "teacher week", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image); err != nil {
		h.logger.Warn("Failed to write week image", zap.String("teacher", name), zap.Error(err))
	}
}
