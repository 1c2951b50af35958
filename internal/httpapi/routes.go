package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/stage-quiz-backend/internal/controller"
	"github.com/DoyleJ11/stage-quiz-backend/internal/hub"
	"github.com/DoyleJ11/stage-quiz-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Options struct {
	PublicURL string
	WS        ws.Options
}

func SetupRoutes(h *hub.Hub, ctl *controller.Controller, opts Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(ctl, opts.WS, log))
	r.Get("/sessions/{code}/qr", SessionQR(h, opts.PublicURL, log))
	return r
}
