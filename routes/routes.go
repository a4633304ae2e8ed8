package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"farmledger/feed"
	"farmledger/handlers"
	"farmledger/metrics"
	"farmledger/middleware"
	"farmledger/ratelim"
)

// Deps is everything the route table wires together.
type Deps struct {
	Handlers    *handlers.Handler
	Auth        *middleware.Auth
	RateLimiter *ratelim.RateLimiter
	Feed        *feed.Hub
}

// prefixes mounts every API route twice; the web client calls /api/...
var prefixes = []string{"", "/api"}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
}

func AddAuthRoutes(router *httprouter.Router, d Deps) {
	for _, p := range prefixes {
		router.POST(p+"/auth/register", d.RateLimiter.Limit(d.Handlers.Register))
		router.POST(p+"/auth/login", d.RateLimiter.Limit(d.Handlers.Login))
	}
}

func AddLogRoutes(router *httprouter.Router, d Deps) {
	for _, p := range prefixes {
		router.POST(p+"/logs/planting", d.Auth.Authenticate(d.Handlers.CreatePlantingLog))
		router.POST(p+"/logs/input", d.Auth.Authenticate(d.Handlers.CreateInputLog))
		router.POST(p+"/logs/harvest", d.Auth.Authenticate(d.Handlers.CreateHarvestLog))
		router.PATCH(p+"/logs/harvest/:id/transport", d.Auth.Authenticate(d.Handlers.MarkHarvestTransported))
		router.GET(p+"/logs/history", d.Auth.Authenticate(d.Handlers.GetHistory))
		router.GET(p+"/logs/recent", d.Auth.Authenticate(d.Handlers.GetRecentActivity))
		if d.Feed != nil {
			router.GET(p+"/logs/feed", d.Auth.AuthenticateSocket(d.Feed.Serve))
		}
	}
}

// NewRouter builds the full route table.
func NewRouter(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Not found"}`)
	})

	AddUtilityRoutes(router)
	AddAuthRoutes(router, d)
	AddLogRoutes(router, d)
	return router
}
