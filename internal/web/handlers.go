package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"geminichat/internal/auth"
	"geminichat/internal/chat"
	"geminichat/internal/common"
	"geminichat/internal/config"
	"geminichat/internal/identity"
	"geminichat/internal/user"
	"geminichat/middleware"
	"geminichat/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger reports whether the backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

type WebHandler struct {
	userService  *user.UserService
	chatService  *chat.ChatService
	sessions     *identity.Manager
	authHandlers *auth.AuthHandlers
	middleware   *middleware.Middleware
	store        Pinger
	templates    *template.Template
	config       *config.Config
	log          *logrus.Logger
}

type PageData struct {
	Page     string
	User     *models.User
	Error    string
	Username string
	Chats    []*models.Chat
}

type askRequest struct {
	Question string `json:"question"`
}

type updateRequest struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

func NewWebHandler(
	userService *user.UserService,
	chatService *chat.ChatService,
	sessions *identity.Manager,
	authHandlers *auth.AuthHandlers,
	mw *middleware.Middleware,
	store Pinger,
	config *config.Config,
	log *logrus.Logger,
) (*WebHandler, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04:05")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &WebHandler{
		userService:  userService,
		chatService:  chatService,
		sessions:     sessions,
		authHandlers: authHandlers,
		middleware:   mw,
		store:        store,
		templates:    tmpl,
		config:       config,
		log:          log,
	}, nil
}

// Page Handlers

func (h *WebHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, http.StatusOK, "signup.html", PageData{Page: "signup"})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	_, err := h.userService.Signup(r.Context(), username, password)
	if err != nil {
		data := PageData{Page: "signup", Username: username}
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, common.ErrValidation):
			status = http.StatusBadRequest
			data.Error = "Username and password are required."
		case errors.Is(err, common.ErrConflict):
			status = http.StatusConflict
			data.Error = "Username already exists."
		default:
			h.log.WithError(err).Error("Signup failed")
			data.Error = "Could not create account, please try again."
		}
		h.render(w, status, "signup.html", data)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.render(w, http.StatusOK, "login.html", PageData{Page: "login"})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	authenticated, err := h.userService.Authenticate(r.Context(), username, password)
	if err != nil {
		data := PageData{Page: "login", Username: username}
		status := http.StatusUnauthorized
		data.Error = "Invalid username or password."
		if !errors.Is(err, common.ErrInvalidCredentials) {
			h.log.WithError(err).Error("Login failed")
			status = http.StatusInternalServerError
			data.Error = "Could not log in, please try again."
		}
		h.render(w, status, "login.html", data)
		return
	}

	if err := h.sessions.Login(w, r, authenticated); err != nil {
		h.log.WithError(err).Error("Failed to start session")
		h.render(w, http.StatusInternalServerError, "login.html", PageData{
			Page:     "login",
			Username: username,
			Error:    "Could not log in, please try again.",
		})
		return
	}

	h.log.WithField("user_id", authenticated.ID).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.log.WithError(err).Warn("Failed to clear session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderChats(w, r, "index.html", "chat")
}

func (h *WebHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	h.renderChats(w, r, "history.html", "history")
}

func (h *WebHandler) renderChats(w http.ResponseWriter, r *http.Request, name, page string) {
	current, _ := identity.UserFromContext(r.Context())

	chats, err := h.chatService.List(r.Context(), current.ID)
	if err != nil {
		h.log.WithError(err).Error("Failed to load chats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.render(w, http.StatusOK, name, PageData{Page: page, User: current, Chats: chats})
}

func (h *WebHandler) render(w http.ResponseWriter, status int, name string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.log.WithError(err).WithField("template", name).Error("Template execution error")
	}
}

// JSON API Handlers

func (h *WebHandler) Ask(w http.ResponseWriter, r *http.Request) {
	current, _ := identity.UserFromContext(r.Context())

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}

	created, err := h.chatService.Ask(r.Context(), current.ID, req.Question)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			writeError(w, http.StatusBadRequest, "No question provided")
			return
		}
		h.log.WithError(err).WithField("user_id", current.ID).Error("Ask failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": created.Response})
}

func (h *WebHandler) History(w http.ResponseWriter, r *http.Request) {
	current, _ := identity.UserFromContext(r.Context())

	chats, err := h.chatService.List(r.Context(), current.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"history": chats})
}

func (h *WebHandler) HistoryByID(w http.ResponseWriter, r *http.Request) {
	current, _ := identity.UserFromContext(r.Context())
	id, ok := chatID(w, r)
	if !ok {
		return
	}

	found, err := h.chatService.Get(r.Context(), current.ID, id)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"chat": found})
}

func (h *WebHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	current, _ := identity.UserFromContext(r.Context())
	id, ok := chatID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Both question and response are required")
		return
	}

	err := h.chatService.Update(r.Context(), current.ID, id, req.Question, req.Response)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Chat updated successfully"})
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "Both question and response are required")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "Chat not found")
	default:
		h.log.WithError(err).WithField("chat_id", id).Error("Update failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *WebHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	current, _ := identity.UserFromContext(r.Context())
	id, ok := chatID(w, r)
	if !ok {
		return
	}

	if err := h.chatService.Delete(r.Context(), current.ID, id); err != nil {
		h.log.WithError(err).WithField("chat_id", id).Error("Delete failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

func (h *WebHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.PingContext(ctx); err != nil {
		h.log.WithError(err).Warn("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chatID reads the numeric {id} route variable.
func chatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Chat not found")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
