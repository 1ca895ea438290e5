package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER     = "user"
	ROLE_ADMIN    = "admin"
	STATUS_ACTIVE = "active"
	STATUS_BANNED = "banned"
)

type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email         string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password      string         `gorm:"type:text" json:"-" validate:"omitempty,min=6"`
	Role          string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status        string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active banned"`
	OAuthProvider string         `gorm:"type:varchar(50);default:null" json:"-"`
	OAuthSubject  string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	LastLoginAt   *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds an email/password user. OAuth users are created through
// CreateOAuthUser instead and carry no password hash.
func CreateUser(name, email, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_ACTIVE,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// CreateOAuthUser builds a user record for a federated login.
func CreateOAuthUser(name, email, provider, subject string) (*User, error) {
	u := &User{
		Name:          name,
		Email:         email,
		Role:          ROLE_USER,
		Status:        STATUS_ACTIVE,
		OAuthProvider: provider,
		OAuthSubject:  subject,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
