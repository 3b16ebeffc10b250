package feed

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Router mounts the websocket on /ws and the most recent message of each type
// on /api/{type}. An empty origins list allows any origin. Callers may add
// routes to the returned router.
func (h *Hub) Router(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/healthz"))
	r.Use(chicors.Handler(chicors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ws", h.ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.NoCache)
		r.Get("/{type}", h.serveLatest)
	})
	return r
}

func (h *Hub) serveLatest(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if typ != TypeClimate && typ != TypeStatus {
		http.NotFound(w, r)
		return
	}
	b := h.Latest(typ)
	if b == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
