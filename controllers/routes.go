package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"connectme/middleware"
)

// NewRouter собирает маршруты хранилища под basePath. Все маршруты, кроме
// /health, требуют ключ доступа.
func NewRouter(basePath string, postIts *PostItController, validator middleware.TokenValidator) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger, middleware.CORS)

	base := router.PathPrefix(basePath).Subrouter()
	base.HandleFunc("/health", HealthCheck).Methods(http.MethodGet)

	api := base.NewRoute().Subrouter()
	api.Use(middleware.JWTMiddleware(validator))
	api.HandleFunc("/postits", postIts.GetAllPostItsHandler).Methods(http.MethodGet)
	// batch регистрируется раньше маршрутов с {id}
	api.HandleFunc("/postits/batch", postIts.BatchUpsertHandler).Methods(http.MethodPost)
	api.HandleFunc("/postits", postIts.UpsertPostItHandler).Methods(http.MethodPost)
	api.HandleFunc("/postits/{id}/position", postIts.UpdatePositionHandler).Methods(http.MethodPut)
	api.HandleFunc("/postits/{id}/color", postIts.UpdateColorHandler).Methods(http.MethodPut)
	api.HandleFunc("/postits/{id}/participants", postIts.UpdateParticipantsHandler).Methods(http.MethodPut)
	api.HandleFunc("/postits/{id}", postIts.DeletePostItHandler).Methods(http.MethodDelete)

	// Предзапросы CORS обрабатывает middleware, маршрут нужен только для совпадения.
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	return router
}
