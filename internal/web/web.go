// Package web serves the server-rendered pages. It drives the same
// services as the JSON API and keeps the session token in a cookie.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"taskprogress/internal/handler"
	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/session"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Services are the use cases the pages call.
type Services struct {
	Auth       handler.AuthService
	Tasks      handler.TaskService
	Categories handler.CategoryService
	Users      handler.UserService
}

type Handler struct {
	svc          Services
	cookieSecure bool
	log          *zap.SugaredLogger
}

func New(svc Services, cookieSecure bool, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure, log: log}
}

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(validation.DateLayout)
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
	"statuses": func() []model.Status {
		return model.Statuses
	},
	"roles": func() []model.Role {
		return model.Roles
	},
	"colors": func() []model.Color {
		return model.Colors
	},
	"canEdit":   permission.CanEditTask,
	"canDelete": permission.CanDeleteTask,
	"canCreate": permission.CanCreateTask,
}

// Templates parses the embedded page templates. Pages are addressed by
// file name, e.g. "tasks.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// render adds the actor and pending flash messages to data.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Actor"] = middleware.Actor(c)
	data["Flashes"] = session.PopFlashes(c)
	c.HTML(status, page, data)
}

func (h *Handler) redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusFound, path)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "404.html", gin.H{"Title": "Page not found"})
}

// fail handles a service error on a page that has no form to re-render.
// Refusals and validation problems become a flash on back.
func (h *Handler) fail(c *gin.Context, err error, back string) {
	switch handler.StatusFor(err) {
	case http.StatusBadRequest, http.StatusForbidden:
		session.SetFlash(c, "danger", err.Error())
		h.redirect(c, back)
	case http.StatusNotFound:
		h.NotFound(c)
	default:
		h.internal(c, err)
	}
}

func (h *Handler) internal(c *gin.Context, err error) {
	h.log.Errorw("page failed", "path", c.Request.URL.Path, "error", err)
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Server error"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
