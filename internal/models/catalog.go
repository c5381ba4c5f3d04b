package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Publisher struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:255;not null"`
	Country string `gorm:"size:100"`
}

func (p *Publisher) PrimaryKey() any { return p.ID }
func (p *Publisher) String() string  { return p.Name }
func (*Publisher) AppLabel() string  { return "catalog" }

type Tag struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:100;not null;uniqueIndex"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Tag) PrimaryKey() any { return t.ID }
func (t *Tag) String() string  { return t.Name }
func (*Tag) AppLabel() string  { return "catalog" }

type Book struct {
	ID    uint   `gorm:"primaryKey"`
	Title string `gorm:"size:255;not null"`
	ISBN  string `gorm:"size:13"`
	Pages int

	PublisherID *uint
	Publisher   *Publisher

	Cover []byte

	Tags     []Tag `gorm:"many2many:book_tags;"`
	Editions []Edition
}

func (b *Book) PrimaryKey() any { return b.ID }
func (b *Book) String() string  { return b.Title }
func (*Book) AppLabel() string  { return "catalog" }

// Edition is edited inline on its book.
type Edition struct {
	ID     uint   `gorm:"primaryKey"`
	BookID uint   `gorm:"not null;index"`
	Label  string `gorm:"size:100;not null"`
	Year   int
	Scan   []byte
}

func (e *Edition) PrimaryKey() any { return e.ID }
func (e *Edition) String() string  { return e.Label }
func (*Edition) AppLabel() string  { return "catalog" }
