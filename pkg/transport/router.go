package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/raywall/broadband-plan-service/pkg/auth"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
)

// RouterOptions parametriza o roteador HTTP.
type RouterOptions struct {
	// Route é o prefixo da API, ex: /api/v2/broadband.
	Route   string
	Timeout time.Duration
	Metrics metrics.Provider
}

// NewRouter registra as rotas de planos, conexões e health sob o prefixo
// configurado. Rotas de escrita de planos exigem papel ADMIN.
func NewRouter(svc PlanService, v auth.Validator, opts RouterOptions) *mux.Router {
	route := strings.TrimSuffix(opts.Route, "/")
	h := &handlers{svc: svc, validate: validator.New()}

	router := mux.NewRouter()
	router.Use(ObservabilityMiddleware(opts.Metrics))
	router.Use(TimeoutMiddleware(opts.Timeout))
	router.Use(AuthMiddleware(v, route, opts.Metrics))

	api := router.PathPrefix(route).Subrouter()

	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/subscription-plan-detail", h.planDetails).Methods(http.MethodPost)
	api.HandleFunc("/connection/new", h.createConnection).Methods(http.MethodPost)
	api.HandleFunc("/connection/me", h.myConnection).Methods(http.MethodGet)

	for _, p := range []string{"", "/"} {
		api.HandleFunc(p, h.listPlans).Methods(http.MethodGet)
		api.HandleFunc(p, requireAdmin(h.addPlan)).Methods(http.MethodPost)
	}
	api.HandleFunc("/{planId}", requireAdmin(h.updatePlan)).Methods(http.MethodPut)
	api.HandleFunc("/{planId}", requireAdmin(h.deletePlan)).Methods(http.MethodDelete)

	return router
}
