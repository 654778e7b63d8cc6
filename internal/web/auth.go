package web

import (
	"errors"
	"net/http"

	"taskprogress/internal/middleware"
	"taskprogress/internal/service"
	"taskprogress/internal/session"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Username string `form:"username" binding:"required,min=3,max=80"`
	Password string `form:"password" binding:"required,min=6"`
}

func (h *Handler) LoginPage(c *gin.Context) {
	if actor := middleware.Actor(c); actor != nil && actor.Active {
		h.redirect(c, middleware.HomeFor(actor))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in", "Form": loginForm{}})
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", gin.H{
			"Title": "Log in", "Form": form, "Error": validation.Describe(err),
		})
		return
	}

	user, token, err := h.svc.Auth.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		var status int
		var msg string
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			status, msg = http.StatusUnauthorized, "Invalid username or password"
		case errors.Is(err, service.ErrAccountDisabled):
			status, msg = http.StatusForbidden, "Your account has been disabled, please contact an administrator"
		default:
			h.internal(c, err)
			return
		}
		form.Password = ""
		h.render(c, status, "login.html", gin.H{"Title": "Log in", "Form": form, "Error": msg})
		return
	}

	middleware.SetSessionCookie(c, token, int(h.svc.Auth.TokenTTL().Seconds()), h.cookieSecure)
	session.SetFlash(c, "success", "Welcome, "+user.FullName+"!")
	h.redirect(c, middleware.HomeFor(user))
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), middleware.Claims(c)); err != nil {
		h.log.Warnw("logout: token not revoked", "error", err)
	}
	middleware.ClearSessionCookie(c)
	session.SetFlash(c, "info", "You have been logged out")
	h.redirect(c, middleware.LoginPath)
}
