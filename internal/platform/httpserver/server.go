package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	roundlifecycle "curator/contexts/curation/round-lifecycle"
	domainerrors "curator/contexts/curation/round-lifecycle/domain/errors"
	lifecyclehttp "curator/contexts/curation/round-lifecycle/transport/http"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	lifecycle roundlifecycle.Module
}

func New(lifecycle roundlifecycle.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		lifecycle: lifecycle,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /rounds/{round_id}/start", s.handleStartRound)
	s.mux.HandleFunc("POST /rounds/{round_id}/end/forum", s.handleEndForum)
	s.mux.HandleFunc("POST /rounds/{round_id}/end/chat", s.handleEndChat)
	s.mux.HandleFunc("POST /rounds/{round_id}/messages", s.handleNominationMessages)
	s.mux.HandleFunc("POST /chat/messages", s.handleSendChat)
	s.mux.HandleFunc("DELETE /nominations/{nomination_id}", s.handleRemoveNomination)
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req lifecyclehttp.LifecycleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	data, err := s.lifecycle.Handler.StartRoundHandler(r.Context(), roundID, req)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true, Data: data})
}

func (s *Server) handleEndForum(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req lifecyclehttp.LifecycleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	data, err := s.lifecycle.Handler.EndForumHandler(r.Context(), roundID, forceFlag(r), req)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true, Data: data})
}

func (s *Server) handleEndChat(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req lifecyclehttp.LifecycleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	data, err := s.lifecycle.Handler.EndChatHandler(r.Context(), roundID, forceFlag(r), req)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true, Data: data})
}

func (s *Server) handleNominationMessages(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req lifecyclehttp.NominationMessagesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	data, err := s.lifecycle.Handler.NominationMessagesHandler(r.Context(), roundID, req)
	if err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true, Data: data})
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req lifecyclehttp.ChatSendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Targets) == 0 || req.Message == "" {
		writeValidationError(w,
			lifecyclehttp.FieldError{Field: "targets", Message: "at least one target user id is required"},
			lifecyclehttp.FieldError{Field: "message", Message: "message must not be empty"},
		)
		return
	}
	if err := s.lifecycle.Handler.SendChatHandler(r.Context(), req); err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true})
}

func (s *Server) handleRemoveNomination(w http.ResponseWriter, r *http.Request) {
	nominationID, ok := pathID(w, r, "nomination_id")
	if !ok {
		return
	}
	if err := s.lifecycle.Handler.RemoveNominationHandler(r.Context(), nominationID); err != nil {
		s.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lifecyclehttp.Response{Success: true})
}

func (s *Server) writeLifecycleError(w http.ResponseWriter, err error) {
	var shapeErr *domainerrors.PollShapeError
	switch {
	case errors.As(err, &shapeErr):
		writeJSON(w, http.StatusUnprocessableEntity, lifecyclehttp.Response{
			Success: false,
			Message: shapeErr.Error(),
			Data:    map[string]any{"thread": shapeErr.Payload},
		})
	case errors.Is(err, domainerrors.ErrRoundNotFound):
		writeJSON(w, http.StatusNotFound, lifecyclehttp.Response{Success: false, Message: err.Error()})
	case errors.Is(err, domainerrors.ErrRoundBusy):
		writeJSON(w, http.StatusConflict, lifecyclehttp.Response{Success: false, Message: err.Error()})
	case errors.Is(err, domainerrors.ErrInvalidRequest),
		errors.Is(err, domainerrors.ErrNominationNotFound),
		errors.Is(err, domainerrors.ErrNoNominations),
		errors.Is(err, domainerrors.ErrPollMissing),
		errors.Is(err, domainerrors.ErrPollStillOpen),
		errors.Is(err, domainerrors.ErrPollAlreadyTallied),
		errors.Is(err, domainerrors.ErrPollNotTallied),
		errors.Is(err, domainerrors.ErrMainThreadMissing):
		writeJSON(w, http.StatusUnprocessableEntity, lifecyclehttp.Response{Success: false, Message: err.Error()})
	default:
		s.logger.Error("lifecycle request failed",
			"event", "http_lifecycle_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, lifecyclehttp.Response{
			Success: false,
			Message: "internal server error",
		})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeValidationError(w, lifecyclehttp.FieldError{
			Field:   name,
			Message: "must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// decodeBody decodes an optional JSON body. An empty body leaves the target
// at its zero value; malformed JSON is a validation failure.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeValidationError(w, lifecyclehttp.FieldError{
		Field:   "body",
		Message: "request body must be valid JSON",
	})
	return false
}

func writeValidationError(w http.ResponseWriter, fields ...lifecyclehttp.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, lifecyclehttp.Response{
		Success: false,
		Message: "validation failed",
		Data:    lifecyclehttp.ValidationErrorData{Errors: fields},
	})
}

func forceFlag(r *http.Request) bool {
	return r.URL.Query().Get("force") == "1"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
