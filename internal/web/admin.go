package web

import (
	"fmt"
	"net/http"
	"strconv"

	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/service"
	"taskprogress/internal/session"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
)

const (
	usersPath      = "/admin/users"
	categoriesPath = "/admin/categories"
)

type userForm struct {
	Username        string `form:"username" binding:"required,min=3,max=80"`
	FullName        string `form:"full_name" binding:"required,min=2,max=100"`
	Password        string `form:"password" binding:"required,min=6"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
	Role            string `form:"role" binding:"required,user_role"`
	IsActive        bool   `form:"is_active"`
}

type userEditForm struct {
	Username string `form:"username" binding:"required,min=3,max=80"`
	FullName string `form:"full_name" binding:"required,min=2,max=100"`
	Role     string `form:"role" binding:"required,user_role"`
	IsActive bool   `form:"is_active"`
}

type passwordForm struct {
	Password        string `form:"password" binding:"required,min=6"`
	PasswordConfirm string `form:"password_confirm" binding:"required,eqfield=Password"`
}

type categoryForm struct {
	Name        string `form:"name" binding:"required,max=50,category_key"`
	DisplayName string `form:"display_name" binding:"required,max=100"`
	Description string `form:"description" binding:"max=500"`
	Color       string `form:"color" binding:"required,category_color"`
	IsActive    bool   `form:"is_active"`
	SortOrder   int    `form:"sort_order" binding:"min=0,max=9999"`
}

func (f *categoryForm) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        &f.Name,
		DisplayName: &f.DisplayName,
		Description: &f.Description,
		Color:       &f.Color,
		Active:      &f.IsActive,
		SortOrder:   &f.SortOrder,
	}
}

func idPath(base string, id uint, action string) string {
	return base + "/" + strconv.FormatUint(uint64(id), 10) + "/" + action
}

func (h *Handler) Users(c *gin.Context) {
	users, err := h.svc.Users.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "users.html", gin.H{"Title": "Users", "Users": users})
}

func (h *Handler) AddUserPage(c *gin.Context) {
	h.renderUserForm(c, http.StatusOK, nil, userForm{Role: string(model.RoleDataEntry), IsActive: true}, "")
}

func (h *Handler) AddUser(c *gin.Context) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderUserForm(c, http.StatusBadRequest, nil, form, validation.Describe(err))
		return
	}
	user, err := h.svc.Users.Create(c.Request.Context(), middleware.Actor(c), service.UserInput{
		Username: &form.Username,
		FullName: &form.FullName,
		Password: &form.Password,
		Role:     &form.Role,
		Active:   &form.IsActive,
	})
	if service.IsValidation(err) {
		h.renderUserForm(c, http.StatusBadRequest, nil, form, err.Error())
		return
	}
	if err != nil {
		h.fail(c, err, usersPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("User %s created", user.FullName))
	h.redirect(c, usersPath)
}

func (h *Handler) EditUserPage(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	form := userEditForm{Username: user.Username, FullName: user.FullName, Role: string(user.Role), IsActive: user.Active}
	h.renderUserForm(c, http.StatusOK, user, form, "")
}

func (h *Handler) EditUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	var form userEditForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderUserForm(c, http.StatusBadRequest, user, form, validation.Describe(err))
		return
	}
	updated, err := h.svc.Users.Update(c.Request.Context(), middleware.Actor(c), user.ID, service.UserInput{
		Username: &form.Username,
		FullName: &form.FullName,
		Role:     &form.Role,
		Active:   &form.IsActive,
	})
	if service.IsValidation(err) {
		h.renderUserForm(c, http.StatusBadRequest, user, form, err.Error())
		return
	}
	if err != nil {
		h.fail(c, err, usersPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("User %s updated", updated.FullName))
	h.redirect(c, usersPath)
}

func (h *Handler) ResetPasswordPage(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "reset_password.html", gin.H{"Title": "Reset password", "User": user})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	var form passwordForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "reset_password.html", gin.H{
			"Title": "Reset password", "User": user, "Error": validation.Describe(err),
		})
		return
	}
	_, err := h.svc.Users.ResetPassword(c.Request.Context(), middleware.Actor(c), user.ID, form.Password)
	if service.IsValidation(err) {
		h.render(c, http.StatusBadRequest, "reset_password.html", gin.H{
			"Title": "Reset password", "User": user, "Error": err.Error(),
		})
		return
	}
	if err != nil {
		h.fail(c, err, usersPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("Password of %s has been reset", user.FullName))
	h.redirect(c, usersPath)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	user, err := h.svc.Users.Delete(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.fail(c, err, usersPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("User %s deleted", user.FullName))
	h.redirect(c, usersPath)
}

func (h *Handler) loadUser(c *gin.Context) (*model.User, bool) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	user, err := h.svc.Users.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.fail(c, err, usersPath)
		return nil, false
	}
	return user, true
}

// renderUserForm serves both the add form (user nil) and the edit form.
func (h *Handler) renderUserForm(c *gin.Context, status int, user *model.User, form any, formErr string) {
	title, action := "New user", usersPath+"/add"
	if user != nil {
		title, action = "Edit user", idPath(usersPath, user.ID, "edit")
	}
	h.render(c, status, "user_form.html", gin.H{
		"Title":  title,
		"Action": action,
		"User":   user,
		"Form":   form,
		"Error":  formErr,
	})
}

func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.svc.Categories.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "categories.html", gin.H{"Title": "Categories", "Categories": categories})
}

func (h *Handler) AddCategoryPage(c *gin.Context) {
	form := categoryForm{Color: string(model.ColorSecondary), IsActive: true}
	h.renderCategoryForm(c, http.StatusOK, nil, form, "")
}

func (h *Handler) AddCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderCategoryForm(c, http.StatusBadRequest, nil, form, validation.Describe(err))
		return
	}
	category, err := h.svc.Categories.Create(c.Request.Context(), middleware.Actor(c), form.input())
	if service.IsValidation(err) {
		h.renderCategoryForm(c, http.StatusBadRequest, nil, form, err.Error())
		return
	}
	if err != nil {
		h.fail(c, err, categoriesPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("Category %q created", category.DisplayName))
	h.redirect(c, categoriesPath)
}

func (h *Handler) EditCategoryPage(c *gin.Context) {
	category, ok := h.loadCategory(c)
	if !ok {
		return
	}
	form := categoryForm{
		Name:        category.Name,
		DisplayName: category.DisplayName,
		Description: category.Description,
		Color:       string(category.Color),
		IsActive:    category.Active,
		SortOrder:   category.SortOrder,
	}
	h.renderCategoryForm(c, http.StatusOK, category, form, "")
}

func (h *Handler) EditCategory(c *gin.Context) {
	category, ok := h.loadCategory(c)
	if !ok {
		return
	}
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderCategoryForm(c, http.StatusBadRequest, category, form, validation.Describe(err))
		return
	}
	updated, err := h.svc.Categories.Update(c.Request.Context(), middleware.Actor(c), category.ID, form.input())
	if service.IsValidation(err) {
		h.renderCategoryForm(c, http.StatusBadRequest, category, form, err.Error())
		return
	}
	if err != nil {
		h.fail(c, err, categoriesPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("Category %q updated", updated.DisplayName))
	h.redirect(c, categoriesPath)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return
	}
	category, err := h.svc.Categories.Delete(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.fail(c, err, categoriesPath)
		return
	}
	session.SetFlash(c, "success", fmt.Sprintf("Category %q deleted", category.DisplayName))
	h.redirect(c, categoriesPath)
}

func (h *Handler) loadCategory(c *gin.Context) (*service.CategoryWithCount, bool) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	category, err := h.svc.Categories.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.fail(c, err, categoriesPath)
		return nil, false
	}
	return category, true
}

func (h *Handler) renderCategoryForm(c *gin.Context, status int, category *service.CategoryWithCount, form categoryForm, formErr string) {
	title, action := "New category", categoriesPath+"/add"
	if category != nil {
		title, action = "Edit category", idPath(categoriesPath, category.ID, "edit")
	}
	h.render(c, status, "category_form.html", gin.H{
		"Title":    title,
		"Action":   action,
		"Category": category,
		"Form":     form,
		"Error":    formErr,
	})
}
