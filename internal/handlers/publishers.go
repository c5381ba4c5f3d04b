package handlers

import (
	"errors"
	"net/http"

	"admin-history/internal/database"
	"admin-history/internal/forms"
	"admin-history/internal/middleware"
	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var publisherSpecs = []forms.FieldSpec{
	{Name: "name", Label: "Name", Kind: forms.Text, Required: true},
	{Name: "country", Label: "Country", Kind: forms.Text},
}

func ListPublishers(c *gin.Context) {
	var publishers []models.Publisher
	if err := db(c).Order("name asc").Find(&publishers).Error; err != nil {
		serverError(c, "failed to list publishers", err)
		return
	}

	user := middleware.CurrentUser(c)
	render(c, http.StatusOK, "publishers_list.html", gin.H{
		"publishers": publishers,
		"CanAdd":     user.HasPerm("add_publisher"),
		"CanChange":  user.HasPerm("change_publisher"),
	})
}

func ShowNewPublisher(c *gin.Context) {
	form, _ := forms.New(publisherSpecs, nil)
	render(c, http.StatusOK, "publishers_form.html", gin.H{"form": form})
}

func CreatePublisher(c *gin.Context) {
	if !postValues(c) {
		return
	}
	form, _ := forms.New(publisherSpecs, nil)
	if !form.Bind(c.Request.PostForm) {
		render(c, http.StatusBadRequest, "publishers_form.html", gin.H{"form": form, "error": "Please correct the errors below."})
		return
	}

	user := middleware.CurrentUser(c)
	var publisher models.Publisher
	err := db(c).Transaction(func(tx *gorm.DB) error {
		if err := form.Apply(&publisher); err != nil {
			return err
		}
		if err := tx.Create(&publisher).Error; err != nil {
			return err
		}
		_, err := database.LogChange(c.Request.Context(), tx, user.ID, &publisher, form, true)
		return err
	})
	if err != nil {
		serverError(c, "failed to create publisher", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/publishers")
}

func loadPublisher(c *gin.Context) (*models.Publisher, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	var publisher models.Publisher
	err := db(c).First(&publisher, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.String(http.StatusNotFound, "publisher not found")
		return nil, false
	}
	if err != nil {
		serverError(c, "failed to load publisher", err)
		return nil, false
	}
	return &publisher, true
}

func ShowEditPublisher(c *gin.Context) {
	publisher, ok := loadPublisher(c)
	if !ok {
		return
	}
	form, err := forms.New(publisherSpecs, publisher)
	if err != nil {
		serverError(c, "failed to build publisher form", err)
		return
	}
	render(c, http.StatusOK, "publishers_form.html", gin.H{"form": form, "publisher": publisher})
}

func UpdatePublisher(c *gin.Context) {
	if !postValues(c) {
		return
	}
	publisher, ok := loadPublisher(c)
	if !ok {
		return
	}
	form, err := forms.New(publisherSpecs, publisher)
	if err != nil {
		serverError(c, "failed to build publisher form", err)
		return
	}
	if !form.Bind(c.Request.PostForm) {
		render(c, http.StatusBadRequest, "publishers_form.html", gin.H{"form": form, "publisher": publisher, "error": "Please correct the errors below."})
		return
	}
	user := middleware.CurrentUser(c)
	err = db(c).Transaction(func(tx *gorm.DB) error {
		if err := form.Apply(publisher); err != nil {
			return err
		}
		if err := tx.Save(publisher).Error; err != nil {
			return err
		}
		_, err := database.LogChange(c.Request.Context(), tx, user.ID, publisher, form, false)
		return err
	})
	if err != nil {
		serverError(c, "failed to update publisher", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/publishers")
}
