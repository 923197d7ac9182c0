// Package directory exposes user lookup and search. Writes come only from
// the external identity provider through Provision; everything else is
// read-only.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suPer8Hu/gopherchat/internal/identity"
	"github.com/suPer8Hu/gopherchat/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("invalid user record")
)

// searchLimit caps SearchUsers results so a broad query never dumps the whole
// table.
const searchLimit = 50

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Provision upserts the user record the identity provider pushes on signup or
// profile update. Ids containing the conversation-id separator are rejected
// here, at the issuance boundary, which keeps canonical conversation ids
// collision-free.
func (s *Service) Provision(ctx context.Context, id, email, displayName string) (*models.User, error) {
	id = strings.TrimSpace(id)
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if !identity.ValidUserID(id) {
		return nil, fmt.Errorf("%w: bad user id %q", ErrInvalidUser, id)
	}
	if email == "" || displayName == "" {
		return nil, fmt.Errorf("%w: email and display name required", ErrInvalidUser)
	}

	u := &models.User{ID: id, Email: email, DisplayName: displayName}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "updated_at"}),
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SearchUsers matches query case-insensitively against email or display name,
// excluding excludingUserID. A blank query returns nothing rather than the
// full directory; results are capped at searchLimit rows.
func (s *Service) SearchUsers(ctx context.Context, query, excludingUserID string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	users := []models.User{}
	if err := s.db.WithContext(ctx).
		Where("(LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?) AND id <> ?",
			pattern, pattern, excludingUserID).
		Order("display_name ASC").
		Limit(searchLimit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
