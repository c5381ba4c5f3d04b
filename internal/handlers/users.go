package handlers

import (
	"errors"
	"net/http"

	"admin-history/internal/database"
	"admin-history/internal/forms"
	"admin-history/internal/history"
	"admin-history/internal/middleware"
	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLen = 8

func userSpecs(tx *gorm.DB) []forms.FieldSpec {
	return []forms.FieldSpec{
		{Name: "username", Label: "Username", Kind: forms.Text, Required: true},
		{Name: "password", Label: "Password", Kind: forms.Text, WriteOnly: true},
		{Name: "is_staff", Label: "Staff status", Kind: forms.Boolean},
		{Name: "is_superuser", Label: "Superuser status", Kind: forms.Boolean},
		{
			Name:     "groups",
			Label:    "Groups",
			Attr:     "Groups",
			Kind:     forms.ManyToMany,
			Resolver: forms.QueryResolver[models.Group, *models.Group]{DB: tx},
		},
	}
}

func ListUsers(c *gin.Context) {
	var users []models.User
	if err := db(c).Preload("Groups").Order("username asc").Find(&users).Error; err != nil {
		serverError(c, "failed to list users", err)
		return
	}
	render(c, http.StatusOK, "users_list.html", gin.H{"users": users})
}

func loadUser(c *gin.Context) (*models.User, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	var user models.User
	err := db(c).Preload("Groups").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.String(http.StatusNotFound, "user not found")
		return nil, false
	}
	if err != nil {
		serverError(c, "failed to load user", err)
		return nil, false
	}
	return &user, true
}

func renderUser(c *gin.Context, status int, user *models.User, form *forms.Form, msg string) {
	groups, err := forms.QueryResolver[models.Group, *models.Group]{DB: db(c)}.Choices()
	if err != nil {
		serverError(c, "failed to load groups", err)
		return
	}
	render(c, status, "users_form.html", gin.H{
		"user":   user,
		"form":   form,
		"groups": groups,
		"error":  msg,
	})
}

func ShowEditUser(c *gin.Context) {
	user, ok := loadUser(c)
	if !ok {
		return
	}
	form, err := forms.New(userSpecs(db(c)), user)
	if err != nil {
		serverError(c, "failed to build user form", err)
		return
	}
	renderUser(c, http.StatusOK, user, form, "")
}

func UpdateUser(c *gin.Context) {
	if !postValues(c) {
		return
	}
	user, ok := loadUser(c)
	if !ok {
		return
	}
	form, err := forms.New(userSpecs(db(c)), user)
	if err != nil {
		serverError(c, "failed to build user form", err)
		return
	}
	if !form.Bind(c.Request.PostForm) {
		renderUser(c, http.StatusBadRequest, user, form, "Please correct the errors below.")
		return
	}
	password := form.Raw("password")
	if password != "" && len(password) < minPasswordLen {
		form.Errors["password"] = "This password is too short."
		renderUser(c, http.StatusBadRequest, user, form, "Please correct the errors below.")
		return
	}
	actor := middleware.CurrentUser(c)
	err = db(c).Transaction(func(tx *gorm.DB) error {
		if err := form.Apply(user); err != nil {
			return err
		}
		if password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user.PasswordHash = string(hash)
		}
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}
		if qs, ok := form.CleanedData()["groups"].(history.QuerySet); ok {
			groups := make([]models.Group, 0, len(qs))
			for _, obj := range qs {
				if g, ok := obj.(*models.Group); ok {
					groups = append(groups, *g)
				}
			}
			if err := tx.Model(user).Association("Groups").Replace(groups); err != nil {
				return err
			}
		}
		_, err := database.LogChange(c.Request.Context(), tx, actor.ID, user, form, false)
		return err
	})
	if err != nil {
		serverError(c, "failed to update user", err)
		return
	}

	c.Redirect(http.StatusFound, "/auth/users")
}
