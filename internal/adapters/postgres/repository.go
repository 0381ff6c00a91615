package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/contacts-api/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetRefreshToken(ctx context.Context, email string, token *string) error
	RotateRefreshToken(ctx context.Context, email, presented, next string) (bool, error)
	ConfirmEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateAvatar(ctx context.Context, email, url string) (*domain.User, error)
}

type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
}

type ContactRepository interface {
	List(ctx context.Context, userID uint, filter ContactFilter, limit, offset int) ([]domain.Contact, error)
	FindByID(ctx context.Context, userID, contactID uint) (*domain.Contact, error)
	Create(ctx context.Context, contact *domain.Contact) error
	Update(ctx context.Context, contact *domain.Contact) error
	Delete(ctx context.Context, contact *domain.Contact) error
	UpcomingBirthdays(ctx context.Context, userID uint, days, limit, offset int) ([]domain.Contact, error)
}

type userRepo struct{ db *gorm.DB }

type contactRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func NewContactRepository(db *gorm.DB) ContactRepository { return &contactRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) SetRefreshToken(ctx context.Context, email string, token *string) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", email).
		Update("refresh_token", token).Error
}

// RotateRefreshToken compares the presented refresh token against the stored
// one and overwrites it with the next token under a row lock, so two
// concurrent refreshes of the same stale token yield at most one success.
// On mismatch the stored token is cleared, forcing a full re-login.
func (r *userRepo) RotateRefreshToken(ctx context.Context, email, presented, next string) (bool, error) {
	matched := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).
			First(&user).Error; err != nil {
			return err
		}
		if user.RefreshToken == nil || *user.RefreshToken != presented {
			return tx.Model(&user).Update("refresh_token", nil).Error
		}
		matched = true
		return tx.Model(&user).Update("refresh_token", next).Error
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (r *userRepo) ConfirmEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", email).
		Update("confirmed", true).Error
}

func (r *userRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", email).
		Update("password_hash", passwordHash).Error
}

func (r *userRepo) UpdateAvatar(ctx context.Context, email, url string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	user.Avatar = &url
	if err := r.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *contactRepo) List(ctx context.Context, userID uint, filter ContactFilter, limit, offset int) ([]domain.Contact, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.FirstName != "" {
		q = q.Where("first_name LIKE ?", contains(filter.FirstName))
	}
	if filter.LastName != "" {
		q = q.Where("last_name LIKE ?", contains(filter.LastName))
	}
	if filter.Email != "" {
		q = q.Where("email LIKE ?", contains(filter.Email))
	}
	var contacts []domain.Contact
	if err := q.Limit(limit).Offset(offset).Order("id").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepo) FindByID(ctx context.Context, userID, contactID uint) (*domain.Contact, error) {
	var contact domain.Contact
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, contactID).
		First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepo) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *contactRepo) Update(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *contactRepo) Delete(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Delete(contact).Error
}

// UpcomingBirthdays matches on month and day so that stored birth years do not
// matter and the window wraps across New Year.
func (r *contactRepo) UpcomingBirthdays(ctx context.Context, userID uint, days, limit, offset int) ([]domain.Contact, error) {
	now := time.Now()
	monthDays := make([]string, 0, days+1)
	for i := 0; i <= days; i++ {
		d := now.AddDate(0, 0, i)
		monthDays = append(monthDays, d.Format("01-02"))
	}
	var contacts []domain.Contact
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND to_char(birthday, 'MM-DD') IN ?", userID, monthDays).
		Limit(limit).Offset(offset).Order("id").
		Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func contains(s string) string { return fmt.Sprintf("%%%s%%", s) }
