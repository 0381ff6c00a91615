package usecase

import (
	"context"
	"errors"

	"gorm.io/gorm"

	repo "github.com/example/contacts-api/internal/adapters/postgres"
	"github.com/example/contacts-api/internal/domain"
	pkglog "github.com/example/contacts-api/pkg/log"
)

type ContactService interface {
	List(ctx context.Context, user *domain.User, filter repo.ContactFilter, limit, offset int) ([]domain.Contact, error)
	Get(ctx context.Context, user *domain.User, contactID uint) (*domain.Contact, error)
	Create(ctx context.Context, user *domain.User, contact *domain.Contact) error
	Update(ctx context.Context, user *domain.User, contactID uint, updated *domain.Contact) (*domain.Contact, error)
	Delete(ctx context.Context, user *domain.User, contactID uint) error
	UpcomingBirthdays(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Contact, error)
}

type contactService struct {
	contacts repo.ContactRepository
	logger   pkglog.Logger
}

func NewContactService(contacts repo.ContactRepository, logger pkglog.Logger) ContactService {
	return &contactService{contacts: contacts, logger: logger}
}

// familyNames are auto-flagged as favorites on insert. This used to be an
// implicit storage hook in an earlier revision; it is an explicit pre-insert
// transform now.
var familyNames = []string{"Кохана", "Батько", "Мама"}

func markFavorite(contact *domain.Contact) {
	for _, name := range familyNames {
		if contact.FirstName == name {
			contact.Favorites = true
			return
		}
	}
}

func (s *contactService) List(ctx context.Context, user *domain.User, filter repo.ContactFilter, limit, offset int) ([]domain.Contact, error) {
	return s.contacts.List(ctx, user.ID, filter, limit, offset)
}

func (s *contactService) Get(ctx context.Context, user *domain.User, contactID uint) (*domain.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, user.ID, contactID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return contact, err
}

func (s *contactService) Create(ctx context.Context, user *domain.User, contact *domain.Contact) error {
	contact.ID = 0
	contact.UserID = user.ID
	markFavorite(contact)
	return s.contacts.Create(ctx, contact)
}

func (s *contactService) Update(ctx context.Context, user *domain.User, contactID uint, updated *domain.Contact) (*domain.Contact, error) {
	contact, err := s.Get(ctx, user, contactID)
	if err != nil {
		return nil, err
	}
	contact.FirstName = updated.FirstName
	contact.LastName = updated.LastName
	contact.Email = updated.Email
	contact.Phone = updated.Phone
	contact.Birthday = updated.Birthday
	contact.Description = updated.Description
	contact.Favorites = updated.Favorites
	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, user *domain.User, contactID uint) error {
	contact, err := s.Get(ctx, user, contactID)
	if err != nil {
		return err
	}
	return s.contacts.Delete(ctx, contact)
}

func (s *contactService) UpcomingBirthdays(ctx context.Context, user *domain.User, limit, offset int) ([]domain.Contact, error) {
	return s.contacts.UpcomingBirthdays(ctx, user.ID, 7, limit, offset)
}
