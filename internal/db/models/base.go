// Package models contains the gorm models of the security schema.
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newIDIfNil assigns a random UUID when id is still the nil UUID.
func newIDIfNil(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate assigns the tenant ID.
func (t *Tenant) BeforeCreate(_ *gorm.DB) error {
	newIDIfNil(&t.ID)
	return nil
}

// BeforeCreate assigns the user directory ID.
func (d *UserDirectory) BeforeCreate(_ *gorm.DB) error {
	newIDIfNil(&d.ID)
	return nil
}

// BeforeCreate assigns the user ID.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	newIDIfNil(&u.ID)
	return nil
}

// BeforeCreate assigns the group ID.
func (g *Group) BeforeCreate(_ *gorm.DB) error {
	newIDIfNil(&g.ID)
	return nil
}

// BeforeCreate assigns the token ID.
func (t *Token) BeforeCreate(_ *gorm.DB) error {
	newIDIfNil(&t.ID)
	return nil
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Tenant{},
		&UserDirectory{},
		&UserDirectoryParameter{},
		&UserDirectoryToTenant{},
		&User{},
		&PasswordHistory{},
		&Group{},
		&UserToGroup{},
		&Role{},
		&Function{},
		&FunctionToRole{},
		&RoleToGroup{},
		&Token{},
		&Policy{},
		&PasswordReset{},
	}
}
