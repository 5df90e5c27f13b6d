package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/Rrens/groqchat/internal/api/middleware"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// FlashCookie carries warnings across the post/redirect/get round trip
const FlashCookie = "chat_flash"

// PageInfo is the static part of the chat page
type PageInfo struct {
	Title    string
	Provider string
	Model    string
}

// PageHandler serves the server-rendered chat page
type PageHandler struct {
	chat ChatService
	info PageInfo
	md   goldmark.Markdown
}

// NewPageHandler creates a new page handler
func NewPageHandler(chat ChatService, info PageInfo) *PageHandler {
	return &PageHandler{
		chat: chat,
		info: info,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type messageView struct {
	Role  string
	Label string
	Body  template.HTML
	Text  string
	Time  string
	Error bool
}

type pageData struct {
	PageInfo
	SessionID string
	StartedAt string
	Count     int
	Messages  []messageView
	Warnings  []string
}

// Index renders the conversation
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		http.Error(w, "missing chat session", http.StatusUnauthorized)
		return
	}

	session, err := h.chat.Current(r.Context(), clientKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to load session")
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	data := pageData{
		PageInfo:  h.info,
		SessionID: session.ID,
		StartedAt: session.CreatedAt.Format("2006-01-02 15:04"),
		Count:     session.ExchangeCount(),
		Warnings:  takeFlash(w, r),
	}
	for _, m := range session.Messages {
		data.Messages = append(data.Messages, h.view(m))
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("failed to render chat page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Submit handles the chat form and redirects back to the page
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		http.Error(w, "missing chat session", http.StatusUnauthorized)
		return
	}

	req := domain.MessageRequest{Content: r.FormValue("content")}
	if err := validate.Struct(req); err != nil {
		setFlash(w, []string{"Message must be between 1 and 8000 characters."})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	reply, err := h.chat.Send(r.Context(), clientKey, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		log.Error().Err(err).Msg("failed to send message")
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	setFlash(w, reply.Warnings)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Reset handles the clear chat button
func (h *PageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		http.Error(w, "missing chat session", http.StatusUnauthorized)
		return
	}

	if _, err := h.chat.Reset(r.Context(), clientKey); err != nil {
		log.Error().Err(err).Msg("failed to reset session")
		http.Error(w, "failed to reset session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandler) view(m domain.Message) messageView {
	v := messageView{
		Role: string(m.Role),
		Text: m.Content,
		Time: m.Timestamp.Format("15:04"),
	}

	switch m.Role {
	case domain.RoleSystem:
		v.Label = "System"
	case domain.RoleUser:
		v.Label = "You"
	case domain.RoleAssistant:
		v.Label = "🤖 Assistant"
		if service.IsErrorReply(m.Content) {
			v.Label = "❌ Error"
			v.Error = true
			return v
		}
		v.Body = h.render(m.Content)
	}
	return v
}

// render converts assistant markdown to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func (h *PageHandler) render(content string) template.HTML {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

func setFlash(w http.ResponseWriter, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(strings.Join(warnings, "\n")),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: FlashCookie, Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil || raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
