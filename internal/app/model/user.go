package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // роль пользователя

const (
	RoleUser  UserRole = "user"  // обычный пользователь
	RoleAdmin UserRole = "admin" // администратор справочников
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                        // ID пользователя
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`           // email
	PasswordHash string         `gorm:"not null" json:"-"`                           // хеш пароля
	Name         string         `gorm:"not null" json:"name"`                        // имя
	Phone        string         `json:"phone"`                                       // телефон
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"` // роль
	CreatedAt    time.Time      `json:"created_at"`                                  // создано
	UpdatedAt    time.Time      `json:"updated_at"`                                  // изменено
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                              // мягкое удаление

	Taxpayers []Taxpayer `gorm:"foreignKey:UserID" json:"taxpayers,omitempty"` // привязанные налогоплательщики
}

func (User) TableName() string {
	return "users"
}
