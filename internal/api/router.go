package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter собирает маршруты, CORS, recovery и access log
func NewRouter(h *Handler, adminSecret string, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// Ручки агента
	agent := r.PathPrefix("/api").Subrouter()
	agent.HandleFunc("/calls", h.StartCall).Methods(http.MethodPost)
	agent.HandleFunc("/calls/{id}/caller", h.IdentifyCaller).Methods(http.MethodPut)
	agent.HandleFunc("/calls/{id}/language", h.SwitchLanguage).Methods(http.MethodPut)
	agent.HandleFunc("/calls/{id}/end", h.EndCall).Methods(http.MethodPost)
	agent.HandleFunc("/availability", h.CheckAvailability).Methods(http.MethodPost)
	agent.HandleFunc("/alternatives", h.SuggestAlternatives).Methods(http.MethodPost)
	agent.HandleFunc("/appointments", h.ScheduleAppointment).Methods(http.MethodPost)
	agent.HandleFunc("/teachers", h.ListTeachers).Methods(http.MethodGet)
	agent.HandleFunc("/teachers/{name}/schedule", h.TeacherSchedule).Methods(http.MethodGet)

	// Вход регистрируется до подроутера, иначе его перехватит AdminAuth
	r.HandleFunc("/admin/login", h.Login).Methods(http.MethodPost)

	// Админские ручки (защищённые)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(AdminAuth(adminSecret, logger))
	admin.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}/status", h.UpdateAppointmentStatus).Methods(http.MethodPut)
	admin.HandleFunc("/reconcile", h.Reconcile).Methods(http.MethodPost)
	admin.HandleFunc("/teachers/{name}/week", h.TeacherWeek).Methods(http.MethodGet)

	stdLog := zap.NewStdLog(logger.Named("http"))

	var handler http.Handler = r
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog), handlers.PrintRecoveryStack(true))(handler)
	handler = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(handler)
	handler = handlers.CombinedLoggingHandler(stdLog.Writer(), handler)

	return handler
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
