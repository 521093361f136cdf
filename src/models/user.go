package models

import (
	"eventhub/src/types"
)

type User struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	Name       string     `gorm:"not null" json:"name"`
	Email      string     `gorm:"uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"not null" json:"-"`
	Phone      string     `json:"phone,omitempty"`
	Role       types.Role `gorm:"default:'user';not null" json:"role"`
	IsVerified bool       `gorm:"default:false" json:"isVerified"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`

	types.Timestamps
}

func (u *User) IsAdmin() bool {
	return u.Role == types.ROLE_ADMIN
}
