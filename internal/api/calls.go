package api

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/receptionist/internal/i18n"
	"github.com/Freeeeeet/receptionist/internal/model"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type startCallRequest struct {
	Language string `json:"language"`
}

type callResponse struct {
	Call    *model.CallRecord `json:"call,omitempty"`
	CallID  string            `json:"call_id,omitempty"`
	Message string            `json:"message"`
}

func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	var req startCallRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	}

	language := i18n.DefaultLanguage
	if req.Language != "" {
		language = i18n.Normalize(req.Language)
	}

	call, err := h.calls.StartCall(r.Context(), language)
	if err != nil {
		h.callError(w, "start call", err)
		return
	}

	writeJSON(w, http.StatusCreated, callResponse{
		Call:    call,
		CallID:  call.CallID,
		Message: i18n.T(i18n.KeyGreeting, call.Language, map[string]string{"school": h.schoolName}),
	})
}

type identifyCallerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) IdentifyCaller(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	var req identifyCallerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.calls.IdentifyCaller(r.Context(), callID, req.Name); err != nil {
		h.callError(w, "identify caller", err)
		return
	}

	writeJSON(w, http.StatusOK, callResponse{
		CallID:  callID,
		Message: i18n.T(i18n.KeyCallerNoted, i18n.DefaultLanguage, map[string]string{"name": req.Name}),
	})
}

type switchLanguageRequest struct {
	Language string `json:"language"`
}

func (h *Handler) SwitchLanguage(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	var req switchLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	// Код не нормализуем: неподдерживаемый язык - ошибка, а не тихий английский
	if err := h.calls.SwitchLanguage(r.Context(), callID, req.Language); err != nil {
		h.callError(w, "switch language", err)
		return
	}

	language := i18n.Normalize(req.Language)
	writeJSON(w, http.StatusOK, callResponse{
		CallID:  callID,
		Message: i18n.T(i18n.KeyLanguageSwitch, language, map[string]string{"language": i18n.DisplayName(language)}),
	})
}

func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	call, err := h.calls.EndCall(r.Context(), callID)
	if err != nil {
		h.callError(w, "end call", err)
		return
	}

	writeJSON(w, http.StatusOK, callResponse{
		Call:    call,
		CallID:  call.CallID,
		Message: i18n.T(i18n.KeyGoodbye, call.Language, map[string]string{"school": h.schoolName}),
	})
}

func (h *Handler) callError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrCallNotFound):
		writeError(w, http.StatusNotFound, "call not found")
	case errors.Is(err, service.ErrUnsupportedLanguage), errors.Is(err, service.ErrEmptyCallerName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Call operation failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
