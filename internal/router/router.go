package router

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rewardlabs/go-rewarder/internal/rewards"
	"github.com/rewardlabs/go-rewarder/internal/rewards/impl"
	"github.com/rewardlabs/go-rewarder/internal/router/controllers"
	"github.com/rewardlabs/go-rewarder/internal/router/middlewares"
)

// ConfiguredRouter returns a fully configured Router that can be used as an http handler.
func ConfiguredRouter(svc rewards.Service) (*Router, error) {
	svc, err := impl.NewInstrumentedRewardService(svc)
	if err != nil {
		return nil, fmt.Errorf("instrumenting reward service: %s", err)
	}
	rewardController := controllers.NewRewardController(svc)

	// General router configuration.
	router := NewRouter()
	router.Use(middlewares.CORS, middlewares.TraceID)

	// Reward configuration.
	router.Post("/api/v1/rewards", rewardController.SubmitReward, middlewares.WithLogging, middlewares.OtelHTTP("SubmitReward"))                // nolint
	router.Get("/api/v1/rewards/pending", rewardController.PendingRewards, middlewares.WithLogging, middlewares.OtelHTTP("PendingRewards"))     // nolint
	router.Get("/version", rewardController.Version, middlewares.WithLogging, middlewares.OtelHTTP("Version"))                                  // nolint

	// Health endpoint configuration.
	router.Get("/healthz", healthHandler)
	router.Get("/health", healthHandler)

	return router, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Router provides a nice api around mux.Router.
type Router struct {
	r *mux.Router
}

// NewRouter is a Mux HTTP router constructor.
func NewRouter() *Router {
	r := mux.NewRouter()
	r.PathPrefix("/").Methods(http.MethodOptions) // accept OPTIONS on all routes and do nothing
	return &Router{r: r}
}

// Get creates a subroute on the specified URI that only accepts GET. You can provide specific middlewares.
func (r *Router) Get(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodGet)
	sub.Use(mid...)
}

// Post creates a subroute on the specified URI that only accepts POST. You can provide specific middlewares.
func (r *Router) Post(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodPost)
	sub.Use(mid...)
}

// Use adds middlewares to all routes. Should be used when a middleware should be execute all all routes (e.g. CORS).
func (r *Router) Use(mid ...mux.MiddlewareFunc) {
	r.r.Use(mid...)
}

// Handler returns the configured router http handler.
func (r *Router) Handler() http.Handler {
	return r.r
}
