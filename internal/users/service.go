package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
)

type usersRepository interface {
	Upsert(ctx context.Context, params UpsertParams) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Identity is what the external sign-in provider reports about a user.
type Identity struct {
	OpenID      string
	Name        *string
	Email       *string
	LoginMethod *string
}

// Service resolves signed-in users.
type Service interface {
	SignIn(ctx context.Context, identity Identity) (*UserDTO, error)
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
}

type service struct {
	repo        usersRepository
	ownerOpenID string
	now         func() time.Time
}

// NewService builds the users service. The ownerOpenID identity is promoted to admin on sign-in.
func NewService(repo usersRepository, ownerOpenID string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:        repo,
		ownerOpenID: strings.TrimSpace(ownerOpenID),
		now:         time.Now,
	}, nil
}

func (s *service) SignIn(ctx context.Context, identity Identity) (*UserDTO, error) {
	openID := strings.TrimSpace(identity.OpenID)
	if openID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "open id is required")
	}

	params := UpsertParams{
		OpenID:       openID,
		Name:         identity.Name,
		Email:        identity.Email,
		LoginMethod:  identity.LoginMethod,
		LastSignedIn: s.now().UTC(),
	}
	if s.ownerOpenID != "" && openID == s.ownerOpenID {
		admin := enums.UserRoleAdmin
		params.Role = &admin
	}

	user, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert user")
	}
	return FromModel(user), nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}
