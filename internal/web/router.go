package web

import (
	"net/http"

	"geminichat/middleware"

	"github.com/gorilla/mux"
)

func (h *WebHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	page := h.middleware.RequirePageUser
	api := h.middleware.RequireAPIUser

	// Web pages
	r.HandleFunc("/signup", h.Signup).Methods("GET", "POST")
	r.HandleFunc("/login", h.Login).Methods("GET", "POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")
	r.HandleFunc("/", page(h.Index)).Methods("GET")
	r.HandleFunc("/history_page", page(h.HistoryPage)).Methods("GET")

	// JSON endpoints
	r.HandleFunc("/ask", api(h.Ask)).Methods("POST")
	r.HandleFunc("/history", api(h.History)).Methods("GET")
	r.HandleFunc("/history/{id:[0-9]+}", api(h.HistoryByID)).Methods("GET")
	r.HandleFunc("/update/{id:[0-9]+}", api(h.UpdateChat)).Methods("PUT")
	r.HandleFunc("/delete/{id:[0-9]+}", api(h.DeleteChat)).Methods("DELETE")

	r.HandleFunc("/api/token", h.authHandlers.TokenHandler).Methods("POST")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	return r
}

// Handler wraps the router with request logging, CORS and identity loading.
func (h *WebHandler) Handler() http.Handler {
	var handler http.Handler = h.SetupRoutes()
	handler = h.middleware.LoadIdentity(handler)
	handler = middleware.SetupCORS(h.config.CORSAllowedOrigin)(handler)
	return middleware.LoggingMiddleware(h.log)(handler)
}
