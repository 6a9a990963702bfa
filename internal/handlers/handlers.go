package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Totarae/shorttty/internal/auth"
	"github.com/Totarae/shorttty/internal/geo"
	"github.com/Totarae/shorttty/internal/model"
	"github.com/Totarae/shorttty/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

type Handler struct {
	Service *service.ShortenerService
	Auth    *auth.Auth
	Logger  *zap.Logger
}

func NewHandler(svc *service.ShortenerService, authService *auth.Auth, logger *zap.Logger) *Handler {
	return &Handler{
		Service: svc,
		Auth:    authService,
		Logger:  logger,
	}
}

// Home без параметров отдаёт описание сервиса,
// с ?createNew= ведёт на дашборд с предзаполненной формой.
func (h *Handler) Home(res http.ResponseWriter, req *http.Request) {
	if longURL := strings.TrimSpace(req.URL.Query().Get("createNew")); longURL != "" {
		http.Redirect(res, req, "/dashboard?createNew="+url.QueryEscape(longURL), http.StatusFound)
		return
	}

	body := map[string]any{"service": "shorttty", "login": "/auth"}
	if user, err := h.Auth.CurrentUser(req); err == nil {
		body["user"] = user
	}
	writeJSON(res, http.StatusOK, body)
}

// Ping проверяет доступность хранилища.
func (h *Handler) Ping(res http.ResponseWriter, req *http.Request) {
	if err := h.Service.Ping(req.Context()); err != nil {
		h.Logger.Error("Storage ping failed", zap.Error(err))
		http.Error(res, "storage unavailable", http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

// Dashboard сводка пользователя с фильтром ?q=.
func (h *Handler) Dashboard(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	dash, err := h.Service.Dashboard(req.Context(), user.ID, req.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(res, err, "")
		return
	}
	dash.CreateNew = req.URL.Query().Get("createNew")
	writeJSON(res, http.StatusOK, dash)
}

// ListLinks GET /api/links?q=
func (h *Handler) ListLinks(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	links, err := h.Service.ListLinks(req.Context(), user.ID, req.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(res, err, "")
		return
	}
	writeJSON(res, http.StatusOK, links)
}

// CreateLink POST /api/links
func (h *Handler) CreateLink(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	var body model.CreateLinkRequest
	dec := json.NewDecoder(http.MaxBytesReader(res, req.Body, maxBodySize))
	if err := dec.Decode(&body); err != nil {
		writeError(res, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.Service.CreateLink(req.Context(), user.ID, body)
	if err != nil {
		h.writeServiceError(res, err, "")
		return
	}
	writeJSON(res, http.StatusCreated, link)
}

// LinkDetails ссылка, клики и статистика.
func (h *Handler) LinkDetails(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	details, err := h.Service.LinkDetails(req.Context(), user.ID, chi.URLParam(req, "id"))
	if err != nil {
		h.writeServiceError(res, err, "Link Not Found")
		return
	}
	writeJSON(res, http.StatusOK, details)
}

// DeleteLink DELETE /api/links/{id}
func (h *Handler) DeleteLink(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	if err := h.Service.DeleteLink(req.Context(), user.ID, chi.URLParam(req, "id")); err != nil {
		h.writeServiceError(res, err, "Link Not Found")
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

// DownloadQR отдаёт PNG с QR как вложение.
func (h *Handler) DownloadQR(res http.ResponseWriter, req *http.Request) {
	user, ok := h.sessionUser(res, req)
	if !ok {
		return
	}

	data, filename, err := h.Service.LinkQR(req.Context(), user.ID, chi.URLParam(req, "id"))
	if err != nil {
		h.writeServiceError(res, err, "Link Not Found")
		return
	}

	res.Header().Set("Content-Type", "image/png")
	res.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(data)
}

// PreviewQR QR для адреса из формы, ничего не сохраняет.
func (h *Handler) PreviewQR(res http.ResponseWriter, req *http.Request) {
	data, err := h.Service.PreviewQR(req.Context(), req.URL.Query().Get("url"))
	if err != nil {
		h.writeServiceError(res, err, "")
		return
	}
	res.Header().Set("Content-Type", "image/png")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(data)
}

// Redirect ищет ссылку по коду, записывает клик и перенаправляет.
func (h *Handler) Redirect(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if id == "" {
		writeError(res, http.StatusBadRequest, "Missing ID in URL")
		return
	}

	link, err := h.Service.Resolve(req.Context(), id)
	if err != nil {
		h.writeServiceError(res, err, "Url not found")
		return
	}

	if !h.skipStats(req, link) {
		ip := geo.ClientIP(req.RemoteAddr)
		if _, err := h.Service.RecordClick(req.Context(), link, ip, req.UserAgent()); err != nil {
			h.Logger.Error("Failed to record click", zap.String("link_id", link.ID), zap.Error(err))
		}
	}

	http.Redirect(res, req, link.OriginalURL, http.StatusFound)
}

// skipStats ?no_stat=1 отключает учёт перехода только для владельца ссылки.
func (h *Handler) skipStats(req *http.Request, link *model.Link) bool {
	if req.URL.Query().Get("no_stat") == "" {
		return false
	}
	userID, ok := h.Auth.ValidateUserID(req)
	return ok && userID == link.UserID
}

// Storage раздаёт публичные объекты хранилища.
func (h *Handler) Storage(res http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	data, err := h.Service.Object(req.Context(), name)
	if err != nil {
		h.writeServiceError(res, err, "Object not found")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	res.Header().Set("Content-Type", contentType)
	res.Header().Set("Cache-Control", "public, max-age=3600")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(data)
}

func (h *Handler) sessionUser(res http.ResponseWriter, req *http.Request) (model.User, bool) {
	if user, ok := auth.UserFromContext(req.Context()); ok {
		return user, true
	}
	user, err := h.Auth.CurrentUser(req)
	if err != nil {
		writeError(res, http.StatusUnauthorized, "unauthorized")
		return model.User{}, false
	}
	return user, true
}

// writeServiceError пишет ответ по ошибке сервиса; причины только в лог.
func (h *Handler) writeServiceError(res http.ResponseWriter, err error, notFoundMsg string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(res, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
	case errors.Is(err, model.ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = "not found"
		}
		writeError(res, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, model.ErrConflict):
		writeError(res, http.StatusConflict, "Custom URL is already taken")
	default:
		h.Logger.Error("Request failed", zap.Error(err))
		writeError(res, http.StatusInternalServerError, "request failed")
	}
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}

func writeError(res http.ResponseWriter, status int, msg string) {
	writeJSON(res, status, map[string]string{"error": msg})
}
