package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/product-verifier/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(uc usecase.VerificationUC) {
	r.router.Use(middleware.RequestID, middleware.Recoverer, r.requestLogger)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		handler := NewVerificationHandler(uc, r.logger)
		registerVerificationRoutes(v1, handler)
	})
}

func registerVerificationRoutes(router chi.Router, h *VerificationHandler) {
	router.Route("/references", func(rr chi.Router) {
		rr.Post("/", h.addReferences)
		rr.Get("/", h.listReferences)
		rr.Delete("/", h.resetReferences)
	})
	router.Post("/verify", h.verify)
	router.Get("/images/*", h.getImage)
	router.Get("/verifications", h.listVerifications)
	router.Get("/healthz", h.healthz)
}

func (r *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, req)

		r.logger.Debugf("%s %s %d %dB %s req_id=%s", req.Method, req.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start), middleware.GetReqID(req.Context()))
	})
}
