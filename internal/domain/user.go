package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:25;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:150;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Avatar       *string   `gorm:"size:255" json:"avatar"`
	RefreshToken *string   `gorm:"size:512" json:"-"`
	Confirmed    bool      `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Contacts []Contact `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "users" }

type Contact struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:50;not null" json:"first_name"`
	LastName    string    `gorm:"size:50;not null" json:"last_name"`
	Email       string    `gorm:"size:150;not null" json:"email"`
	Phone       string    `gorm:"size:30" json:"phone"`
	Birthday    time.Time `gorm:"not null" json:"birthday"`
	Description string    `gorm:"size:150" json:"description"`
	Favorites   bool      `gorm:"not null;default:false" json:"favorites"`
	UserID      uint      `gorm:"index;not null" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }
