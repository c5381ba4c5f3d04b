package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string `gorm:"not null"`
	IsStaff      bool   `gorm:"not null;default:false"`
	IsSuperuser  bool   `gorm:"not null;default:false"`

	Groups      []Group      `gorm:"many2many:user_groups;"`
	Permissions []Permission `gorm:"many2many:user_permissions;"`
}

func (u *User) PrimaryKey() any { return u.ID }
func (u *User) String() string  { return u.Username }
func (*User) AppLabel() string  { return "auth" }

// HasPerm reports whether the user holds a permission by codename, directly or through a
// group. Superusers hold every permission. Groups and permissions must be preloaded.
func (u *User) HasPerm(codename string) bool {
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p.Codename == codename {
			return true
		}
	}
	for _, g := range u.Groups {
		for _, p := range g.Permissions {
			if p.Codename == codename {
				return true
			}
		}
	}
	return false
}

type Group struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:150;not null"`

	Permissions []Permission `gorm:"many2many:group_permissions;"`
}

func (g *Group) PrimaryKey() any { return g.ID }
func (g *Group) String() string  { return g.Name }
func (*Group) AppLabel() string  { return "auth" }

// ContentType describes one kind of resource managed through the admin.
type ContentType struct {
	ID       uint   `gorm:"primaryKey"`
	AppLabel string `gorm:"size:100;not null;uniqueIndex:idx_content_type_app_model"`
	Model    string `gorm:"size:100;not null;uniqueIndex:idx_content_type_app_model"`
}

func (ct *ContentType) String() string { return ct.AppLabel + " | " + ct.Model }

type Permission struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:255;not null"`
	Codename      string `gorm:"size:100;not null"`
	ContentTypeID uint   `gorm:"not null;index"`
	ContentType   ContentType
}

func (p *Permission) PrimaryKey() any { return p.ID }
func (p *Permission) String() string  { return p.Codename }
