package http

import (
	"net/http"
	"time"

	"github.com/aura-chat/chat-service/internal/security"
	httpmw "github.com/aura-chat/chat-service/internal/transport/http/middleware"
	"github.com/aura-chat/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, signer *security.TokenSigner, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	auth := httpmw.AuthMiddleware(signer)

	// регистрация без токена
	r.Post("/auth/anonymous", h.CreateAnonymous)

	// письма открывают по прямой ссылке, токен не нужен
	r.Get("/letters/{id}", h.GetLetter)
	r.Post("/letters/{id}/react", h.ReactLetter)

	// WS endpoint (токен валидирует сам, из query)
	r.Get("/ws/rooms/{id}", wsServer.HandleWS)

	// всё остальное требует device-токена
	r.Group(func(pr chi.Router) {
		pr.Use(auth)
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/profile", h.GetProfile)
		pr.Put("/profile", h.UpdateProfile)

		pr.Post("/join/{code}", h.JoinByCode)

		pr.Post("/match", h.FindMatch)
		pr.Delete("/match", h.CancelMatch)

		pr.Post("/letters", h.CreateLetter)

		pr.Put("/messages/{id}/reaction", h.SetReaction)

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Delete("/", h.CloseRoom)
				rr.Post("/leave", h.LeaveRoom)
				rr.Get("/participants", h.GetParticipants)
				rr.Get("/messages", h.GetChatHistory)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
