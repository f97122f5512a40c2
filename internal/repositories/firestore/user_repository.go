package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/sicommerce/storefront/internal/domain"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
)

type userDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	Phone     string    `firestore:"phone,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// UserRepository persists users; emails are unique and stored lower-cased.
type UserRepository struct {
	base  *pfirestore.BaseRepository[userDocument]
	now   func() time.Time
	newID func() string
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return userFromDocument(doc), nil
}

func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	existing, err := r.base.First(ctx, "user "+email, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email)
	})
	switch {
	case err == nil:
		user.ID = existing.ID
		user.CreatedAt = existing.Data.CreatedAt
	case isNotFound(err):
		if user.ID == "" {
			user.ID = r.newID()
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = r.now()
		}
	default:
		return domain.User{}, err
	}

	doc := userDocument{
		Name:      user.Name,
		Email:     email,
		Role:      string(user.Role),
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
	if err := r.base.Set(ctx, user.ID, doc); err != nil {
		return domain.User{}, err
	}
	user.Email = email
	return user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return r.base.Count(ctx)
}

func userFromDocument(doc pfirestore.Document[userDocument]) domain.User {
	return domain.User{
		ID:        doc.ID,
		Name:      doc.Data.Name,
		Email:     doc.Data.Email,
		Role:      domain.UserRole(doc.Data.Role),
		Phone:     doc.Data.Phone,
		CreatedAt: doc.Data.CreatedAt,
	}
}
