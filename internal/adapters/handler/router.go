package handler

import "net/http"

// Routes gathers the handlers the API serves. Metrics may be nil.
type Routes struct {
	Auth         *AuthHandler
	Registration *RegistrationHandler
	Requests     *RequestHandler
	Directory    *DirectoryHandler
	Assistant    *AssistantHandler
	Matcher      *MatcherHandler
	Config       *ConfigHandler
	Health       *HealthHandler
	Metrics      http.Handler

	RequireSession func(http.HandlerFunc) http.HandlerFunc
}

// NewMux registers every route on a fresh ServeMux.
func NewMux(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()
	auth := rt.RequireSession

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("GET /health", rt.Health.Health)
	mux.HandleFunc("GET /health/ready", rt.Health.Ready)
	mux.HandleFunc("GET /health/live", rt.Health.Live)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}
	mux.HandleFunc("GET /config", rt.Config.Get)

	mux.HandleFunc("POST /auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /auth/login", rt.Auth.Login)
	mux.HandleFunc("POST /auth/logout", auth(rt.Auth.Logout))

	mux.HandleFunc("GET /me", auth(rt.Registration.Me))
	mux.HandleFunc("DELETE /me", auth(rt.Registration.Unmount))
	mux.HandleFunc("PATCH /profile", auth(rt.Registration.UpdateProfile))
	mux.HandleFunc("POST /donate", auth(rt.Registration.Donate))

	mux.HandleFunc("POST /requests", auth(rt.Requests.Create))
	mux.HandleFunc("GET /requests", rt.Requests.List)
	mux.HandleFunc("GET /requests/{id}", rt.Requests.Get)

	mux.HandleFunc("GET /donors", rt.Directory.Donors)
	mux.HandleFunc("GET /hospitals", rt.Directory.Hospitals)

	mux.HandleFunc("POST /assistant/conversations", rt.Assistant.Open)
	mux.HandleFunc("GET /assistant/conversations/{id}", rt.Assistant.Transcript)
	mux.HandleFunc("DELETE /assistant/conversations/{id}", rt.Assistant.Close)
	mux.HandleFunc("POST /assistant/conversations/{id}/messages", rt.Assistant.Send)

	mux.HandleFunc("POST /matcher", rt.Matcher.Suggest)

	return mux
}

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// PublicPaths skip the API key check.
var PublicPaths = []string{"/health", "/health/ready", "/health/live", "/metrics", "/config"}
