package models

import "time"

type ActionFlag int

const (
	Addition ActionFlag = 1
	Change   ActionFlag = 2
	Deletion ActionFlag = 3
)

func (f ActionFlag) String() string {
	switch f {
	case Addition:
		return "addition"
	case Change:
		return "change"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// LogEntry is one admin action. ChangeMessage holds either free text or a JSON change message.
type LogEntry struct {
	ID         uint      `gorm:"primaryKey"`
	ActionTime time.Time `gorm:"not null;index"`

	UserID uint `gorm:"not null;index"`
	User   User

	ContentTypeID *uint `gorm:"index"`
	ContentType   *ContentType

	ObjectID      string     `gorm:"type:text"`
	ObjectRepr    string     `gorm:"size:200;not null"`
	ActionFlag    ActionFlag `gorm:"not null"`
	ChangeMessage string     `gorm:"type:text"`
}

func (*LogEntry) AppLabel() string { return "admin" }
