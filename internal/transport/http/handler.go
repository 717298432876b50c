package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aura-chat/chat-service/internal/domain"
	"github.com/aura-chat/chat-service/internal/postgres"
	"github.com/aura-chat/chat-service/internal/service"
	httpmw "github.com/aura-chat/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	profileSvc *service.ProfileService
	roomSvc    *service.RoomService
	memberSvc  *service.MemberService
	chatSvc    *service.ChatService
	matchSvc   *service.MatchService
	letterSvc  *service.LetterService
}

func NewHandler(profile *service.ProfileService, room *service.RoomService, member *service.MemberService, chat *service.ChatService, match *service.MatchService, letter *service.LetterService) *Handler {
	return &Handler{
		profileSvc: profile,
		roomSvc:    room,
		memberSvc:  member,
		chatSvc:    chat,
		matchSvc:   match,
		letterSvc:  letter,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /auth/anonymous
func (h *Handler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	p, token, err := h.profileSvc.CreateAnonymous(r.Context(), req.Username, req.Interests)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidUsername) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("handler.CreateAnonymous:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, CreateProfileResponse{
		Profile: profileItem(p),
		Token:   token,
	})
}

// GET /profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	p, err := h.profileSvc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "profile not found"})
			return
		}
		slog.Error("handler.GetProfile:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, profileItem(p))
}

// PUT /profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	p, err := h.profileSvc.Update(r.Context(), userID, req.Username, req.Interests)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidUsername) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("handler.UpdateProfile:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, profileItem(p))
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	var (
		room *domain.Room
		err  error
	)
	switch req.Kind {
	case "group":
		room, err = h.roomSvc.CreateGroup(r.Context(), userID, req.Name)
	case "private", "":
		room, err = h.roomSvc.CreatePrivate(r.Context(), userID, req.Name)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown room kind"})
		return
	}
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, roomItem(room))
}

// GET /rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	rooms, next, err := h.roomSvc.ListRooms(r.Context(), limit, cursor)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.ListRooms:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms)), NextCursor: next}
	for i := range rooms {
		resp.Items = append(resp.Items, roomItem(&rooms[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, roomItem(room))
}

// POST /join/{code} — вход по инвайт-коду
func (h *Handler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	userID := httpmw.UserIDFromCtx(r.Context())

	room, err := h.roomSvc.JoinByCode(r.Context(), userID, code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInvite):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "invalid or expired invite"})
			return
		case errors.Is(err, domain.ErrRoomFull):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "room full"})
			return
		default:
			slog.Error("handler.JoinByCode:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, roomItem(room))
}

// DELETE /rooms/{id}
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())

	if err := h.roomSvc.CloseRoom(r.Context(), roomID, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		case errors.Is(err, domain.ErrNotRoomOwner):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "only the creator can close a room"})
			return
		default:
			slog.Error("handler.CloseRoom:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// POST /rooms/{id}/leave
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := httpmw.UserIDFromCtx(r.Context())

	if err := h.memberSvc.LeaveRoom(r.Context(), roomID, userID); err != nil {
		if errors.Is(err, domain.ErrNotInRoom) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "user not in room"})
			return
		}
		slog.Error("handler.LeaveRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	items, err := h.memberSvc.ListParticipants(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.GetParticipants:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, ParticipantItem{
			UserID:   it.UserID,
			JoinedAt: it.JoinedAt,
			IsTyping: it.IsTyping,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}/messages?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.chatSvc.History(r.Context(), roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, messageItem(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

// PUT /messages/{id}/reaction
func (h *Handler) SetReaction(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "id")

	var req SetReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	m, err := h.chatSvc.React(r.Context(), msgID, req.Reaction)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "message not found"})
			return
		}
		slog.Error("handler.SetReaction:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, messageItem(*m))
}

// POST /match
func (h *Handler) FindMatch(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	room, err := h.matchSvc.FindMatch(r.Context(), userID, req.Interests)
	if err != nil {
		slog.Error("handler.FindMatch:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if room == nil {
		// кандидатов нет, пользователь остаётся в поиске
		writeJSON(w, http.StatusOK, MatchResponse{Matched: false})
		return
	}

	item := roomItem(room)
	writeJSON(w, http.StatusOK, MatchResponse{Matched: true, Room: &item})
}

// DELETE /match
func (h *Handler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	if err := h.matchSvc.CancelSearch(r.Context(), userID); err != nil {
		slog.Error("handler.CancelMatch:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// POST /letters
func (h *Handler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	userID := httpmw.UserIDFromCtx(r.Context())

	var req CreateLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	l, err := h.letterSvc.Create(r.Context(), userID, req.Content, domain.LetterTheme(req.Theme))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage),
			errors.Is(err, domain.ErrMessageTooLong),
			errors.Is(err, domain.ErrInvalidTheme):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		default:
			slog.Error("handler.CreateLetter:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusCreated, letterItem(l))
}

// GET /letters/{id} — публичный, письмо открывают по ссылке
func (h *Handler) GetLetter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.letterSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrLetterNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "letter not found"})
			return
		}
		slog.Error("handler.GetLetter:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, letterItem(l))
}

// POST /letters/{id}/react
func (h *Handler) ReactLetter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReactLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	l, err := h.letterSvc.React(r.Context(), id, req.Kind)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLetterNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "letter not found"})
			return
		case errors.Is(err, domain.ErrInvalidReaction):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		default:
			slog.Error("handler.ReactLetter:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, letterItem(l))
}
