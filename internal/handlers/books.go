package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"admin-history/internal/database"
	"admin-history/internal/forms"
	"admin-history/internal/history"
	"admin-history/internal/middleware"
	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func bookSpecs(tx *gorm.DB) []forms.FieldSpec {
	return []forms.FieldSpec{
		{Name: "title", Label: "Title", Kind: forms.Text, Required: true},
		{Name: "isbn", Label: "ISBN", Kind: forms.Text},
		{Name: "pages", Label: "Pages", Kind: forms.Integer},
		{
			Name:     "publisher",
			Label:    "Publisher",
			Attr:     "publisher_id",
			Kind:     forms.ForeignKey,
			Resolver: forms.QueryResolver[models.Publisher, *models.Publisher]{DB: tx},
		},
		{
			Name:     "tags",
			Label:    "Tags",
			Attr:     "Tags",
			Kind:     forms.ManyToMany,
			Key:      forms.UUIDKey,
			Resolver: forms.QueryResolver[models.Tag, *models.Tag]{DB: tx},
		},
	}
}

var editionSpecs = []forms.FieldSpec{
	{Name: "label", Label: "Label", Kind: forms.Text, Required: true},
	{Name: "year", Label: "Year", Kind: forms.Integer},
}

func newEdition() history.Identifiable { return &models.Edition{} }

func ListBooks(c *gin.Context) {
	var books []models.Book
	if err := db(c).Preload("Publisher").Order("title asc").Find(&books).Error; err != nil {
		serverError(c, "failed to list books", err)
		return
	}

	user := middleware.CurrentUser(c)
	render(c, http.StatusOK, "books_list.html", gin.H{
		"books":     books,
		"CanAdd":    user.HasPerm("add_book"),
		"CanChange": user.HasPerm("change_book"),
		"CanDelete": user.HasPerm("delete_book"),
	})
}

// bookPage is everything the book form template needs.
type bookPage struct {
	Book     *models.Book
	Form     *forms.Form
	Editions *forms.Formset
	Error    string
}

func renderBook(c *gin.Context, status int, page bookPage) {
	tx := db(c)
	publishers, err := forms.QueryResolver[models.Publisher, *models.Publisher]{DB: tx}.Choices()
	if err != nil {
		serverError(c, "failed to load publishers", err)
		return
	}
	tags, err := forms.QueryResolver[models.Tag, *models.Tag]{DB: tx}.Choices()
	if err != nil {
		serverError(c, "failed to load tags", err)
		return
	}

	user := middleware.CurrentUser(c)
	render(c, status, "books_form.html", gin.H{
		"page":       page,
		"publishers": publishers,
		"tags":       tags,
		"CanDelete":  page.Book != nil && user.HasPerm("delete_book"),
	})
}

func ShowNewBook(c *gin.Context) {
	form, err := forms.New(bookSpecs(db(c)), nil)
	if err != nil {
		serverError(c, "failed to build book form", err)
		return
	}
	editions, err := forms.NewFormset("editions", "book_id", editionSpecs, newEdition, nil)
	if err != nil {
		serverError(c, "failed to build editions formset", err)
		return
	}
	renderBook(c, http.StatusOK, bookPage{Form: form, Editions: editions})
}

func CreateBook(c *gin.Context) {
	if !postValues(c) {
		return
	}

	form, err := forms.New(bookSpecs(db(c)), nil)
	if err != nil {
		serverError(c, "failed to build book form", err)
		return
	}
	editions, err := forms.NewFormset("editions", "book_id", editionSpecs, newEdition, nil)
	if err != nil {
		serverError(c, "failed to build editions formset", err)
		return
	}

	values := c.Request.PostForm
	formOK := form.Bind(values)
	editionsOK := editions.Bind(values)
	if !formOK || !editionsOK {
		renderBook(c, http.StatusBadRequest, bookPage{Form: form, Editions: editions, Error: "Please correct the errors below."})
		return
	}

	user := middleware.CurrentUser(c)
	var book models.Book
	err = db(c).Transaction(func(tx *gorm.DB) error {
		if err := form.Apply(&book); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&book).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, &book, form); err != nil {
			return err
		}
		if err := editions.Save(tx, book.ID); err != nil {
			return err
		}
		_, err := database.LogChange(c.Request.Context(), tx, user.ID, &book, form, true, editions)
		return err
	})
	if err != nil {
		serverError(c, "failed to create book", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/books")
}

func loadBook(c *gin.Context) (*models.Book, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}

	var book models.Book
	err := db(c).
		Preload("Tags").
		Preload("Editions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.String(http.StatusNotFound, "book not found")
		return nil, false
	}
	if err != nil {
		serverError(c, "failed to load book", err)
		return nil, false
	}
	return &book, true
}

func bookForms(c *gin.Context, book *models.Book) (*forms.Form, *forms.Formset, error) {
	form, err := forms.New(bookSpecs(db(c)), book)
	if err != nil {
		return nil, nil, err
	}
	existing := make([]history.Identifiable, 0, len(book.Editions))
	for i := range book.Editions {
		existing = append(existing, &book.Editions[i])
	}
	editions, err := forms.NewFormset("editions", "book_id", editionSpecs, newEdition, existing)
	if err != nil {
		return nil, nil, err
	}
	return form, editions, nil
}

func ShowEditBook(c *gin.Context) {
	book, ok := loadBook(c)
	if !ok {
		return
	}
	form, editions, err := bookForms(c, book)
	if err != nil {
		serverError(c, "failed to build book form", err)
		return
	}
	renderBook(c, http.StatusOK, bookPage{Book: book, Form: form, Editions: editions})
}

func UpdateBook(c *gin.Context) {
	if !postValues(c) {
		return
	}
	book, ok := loadBook(c)
	if !ok {
		return
	}
	form, editions, err := bookForms(c, book)
	if err != nil {
		serverError(c, "failed to build book form", err)
		return
	}

	values := c.Request.PostForm
	formOK := form.Bind(values)
	editionsOK := editions.Bind(values)
	if !formOK || !editionsOK {
		renderBook(c, http.StatusBadRequest, bookPage{Book: book, Form: form, Editions: editions, Error: "Please correct the errors below."})
		return
	}

	user := middleware.CurrentUser(c)
	err = db(c).Transaction(func(tx *gorm.DB) error {
		if err := form.Apply(book); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(book).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, book, form); err != nil {
			return err
		}
		if err := editions.Save(tx, book.ID); err != nil {
			return err
		}
		_, err := database.LogChange(c.Request.Context(), tx, user.ID, book, form, false, editions)
		return err
	})
	if err != nil {
		serverError(c, "failed to update book", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/books")
}

func ShowBookHistory(c *gin.Context) {
	book, ok := loadBook(c)
	if !ok {
		return
	}
	objectHistory(c, book, "/catalog/books/"+strconv.FormatUint(uint64(book.ID), 10)+"/edit")
}

func DeleteBook(c *gin.Context) {
	book, ok := loadBook(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	err := db(c).Transaction(func(tx *gorm.DB) error {
		// logged before the row goes away
		if _, err := database.LogDeletion(c.Request.Context(), tx, user.ID, book); err != nil {
			return err
		}
		return tx.Select("Tags", "Editions").Delete(book).Error
	})
	if err != nil {
		serverError(c, "failed to delete book", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/books")
}

// DeleteBooks is the list page's bulk action: it deletes every selected book.
func DeleteBooks(c *gin.Context) {
	if !postValues(c) {
		return
	}

	ids := make([]uint, 0, len(c.Request.PostForm["ids"]))
	for _, raw := range c.Request.PostForm["ids"] {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.String(http.StatusBadRequest, "invalid id")
			return
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		c.Redirect(http.StatusFound, "/catalog/books")
		return
	}

	var books []models.Book
	if err := db(c).Preload("Tags").Preload("Editions").Find(&books, ids).Error; err != nil {
		serverError(c, "failed to load books", err)
		return
	}
	objs := make([]history.Identifiable, 0, len(books))
	for i := range books {
		objs = append(objs, &books[i])
	}

	user := middleware.CurrentUser(c)
	err := db(c).Transaction(func(tx *gorm.DB) error {
		if _, err := database.LogDeletions(c.Request.Context(), tx, user.ID, objs...); err != nil {
			return err
		}
		for i := range books {
			if err := tx.Select("Tags", "Editions").Delete(&books[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		serverError(c, "failed to delete books", err)
		return
	}

	c.Redirect(http.StatusFound, "/catalog/books")
}

func replaceTags(tx *gorm.DB, book *models.Book, form *forms.Form) error {
	qs, ok := form.CleanedData()["tags"].(history.QuerySet)
	if !ok {
		return nil
	}
	tags := make([]models.Tag, 0, len(qs))
	for _, obj := range qs {
		if t, ok := obj.(*models.Tag); ok {
			tags = append(tags, *t)
		}
	}
	return tx.Model(book).Association("Tags").Replace(tags)
}
