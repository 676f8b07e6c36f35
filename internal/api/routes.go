package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ferux/attendancebridge/internal/fcontext"
	"github.com/ferux/attendancebridge/internal/model"
)

func (api *HTTP) setupRoutes(info model.ApplicationInfo) {
	router := mux.NewRouter()

	// api/v1 base path handlers
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middlewareCounter(api), middlewareRequestID(), middlewareLogger(api.logger))
	v1.HandleFunc("/info", api.handleInfo(info)).Methods(http.MethodGet)
	v1.HandleFunc("/devices", api.handleGetDevices()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.serveError(r.Context(), w, r, model.ServiceError{
			Message:   "not found",
			RequestID: fcontext.RequestID(r.Context()),
			Code:      http.StatusNotFound,
		})
	})

	api.srv.Handler = router
}
