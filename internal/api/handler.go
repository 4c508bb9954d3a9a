package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wordvault-go/internal/cache"
	"wordvault-go/internal/messaging"
	"wordvault-go/internal/storage"
	"wordvault-go/internal/user"
	"wordvault-go/internal/word"
)

// Handler is the thin synchronous request surface: parameter parsing and
// response shaping only. Reads call the services directly; writes publish a
// write-intent envelope and return before the consumer applies it.
type Handler struct {
	users     *user.Service
	words     *word.Service
	publisher *messaging.Publisher
	search    *cache.SearchCache
	pool      *storage.Pool
	registry  *prometheus.Registry
	logger    *slog.Logger
}

func NewHandler(
	users *user.Service,
	words *word.Service,
	publisher *messaging.Publisher,
	search *cache.SearchCache,
	pool *storage.Pool,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:     users,
		words:     words,
		publisher: publisher,
		search:    search,
		pool:      pool,
		registry:  registry,
		logger:    logger,
	}
}

func (h *Handler) Routes() *httprouter.Router {
	router := httprouter.New()

	router.GET("/healthz", h.Health)
	router.Handler(http.MethodGet, "/metrics",
		promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	router.GET("/user_exists", h.UserExists)
	router.GET("/users", h.GetUser)
	router.POST("/users", h.PostUser)

	router.GET("/api/v0/words", h.GetWords)
	router.POST("/api/v0/words", h.PostWord)
	router.DELETE("/api/v0/words", h.DeleteWord)
	router.PUT("/api/v0/words", h.RenameWord)
	router.GET("/api/v0/words/search", h.SearchWord)
	router.GET("/api/v0/words/stats", h.WordStats)
	router.POST("/api/v0/words/review", h.ReviewOutcome)

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, word.ErrWordNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrPaymentRequired):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, storage.ErrConnectivity):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func queryInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.pool.Ping(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) UserExists(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	exists, err := h.users.UserExists(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"user_exists": exists})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var data any
	switch {
	case queryBool(r, "all_info"):
		data, err = h.users.GetInfo(r.Context(), userID)
	case queryBool(r, "profile"):
		data, err = h.users.GetProfile(r.Context(), userID)
	default:
		data, err = h.users.GetUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_data": data})
}

func (h *Handler) PostUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var u user.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.publisher.PublishUser(r.Context(), u); err != nil {
		h.logger.Error("publishing user", "error", err)
		http.Error(w, "publish failed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) GetWords(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	words, err := h.words.QueryWords(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"words": words})
}

func (h *Handler) PostWord(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var wrd word.Word
	if err := json.NewDecoder(r.Body).Decode(&wrd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	exists, err := h.words.WordExists(r.Context(), wrd.UserID, wrd.Word)
	if err != nil {
		writeError(w, err)
		return
	}
	if exists {
		http.Error(w, "word already exists", http.StatusConflict)
		return
	}

	if err := h.publisher.PublishWord(r.Context(), wrd); err != nil {
		h.logger.Error("publishing word", "error", err)
		http.Error(w, "publish failed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) DeleteWord(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	wordID, err := queryInt64(r, "word_id")
	if err != nil {
		http.Error(w, "word_id is required", http.StatusBadRequest)
		return
	}

	deleted, err := h.words.DeleteWord(r.Context(), userID, wordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) RenameWord(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		UserID  int64  `json:"user_id"`
		OldWord string `json:"old_word"`
		NewWord string `json:"new_word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if input.OldWord == "" || input.NewWord == "" {
		http.Error(w, "old_word and new_word are required", http.StatusBadRequest)
		return
	}

	if err := h.words.RenameWord(r.Context(), input.UserID, input.OldWord, input.NewWord); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SearchWord(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	wordText := r.URL.Query().Get("word")
	if wordText == "" {
		http.Error(w, "word is required", http.StatusBadRequest)
		return
	}

	if hits, ok := h.search.Get(r.Context(), wordText); ok {
		writeJSON(w, http.StatusOK, map[string]any{"results": hits})
		return
	}

	hits, err := h.words.SearchPublic(r.Context(), wordText)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.search.Set(r.Context(), wordText, hits); err != nil {
		h.logger.Warn("caching search result", "word", wordText, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (h *Handler) WordStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := queryInt64(r, "user_id")
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	stats, err := h.words.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ReviewOutcome(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		UserID  int64  `json:"user_id"`
		Word    string `json:"word"`
		Correct bool   `json:"correct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if input.Word == "" {
		http.Error(w, "word is required", http.StatusBadRequest)
		return
	}

	if err := h.words.ReviewOutcome(r.Context(), input.UserID, input.Word, input.Correct); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
