package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	"github.com/eventpool/lottery-api/pkg/auth"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func newTestService(users *mockUserRepo) *Service {
	return NewService(users, auth.NewJWTService(auth.Config{Secret: "test-secret", ExpiryHours: 1}))
}

func TestRegister(t *testing.T) {
	t.Run("normalizes the email and hashes the password", func(t *testing.T) {
		users := &mockUserRepo{}
		svc := newTestService(users)

		users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			if u.Email != "member@example.com" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22222")) == nil
		})).Return(nil)

		resp, err := svc.Register(context.Background(), &model.RegisterRequest{
			Email:    "  Member@Example.COM ",
			Name:     "Member",
			Password: "hunter22222",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		users.AssertExpectations(t)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := &mockUserRepo{}
		svc := newTestService(users)

		users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrEmailTaken)

		_, err := svc.Register(context.Background(), &model.RegisterRequest{
			Email:    "member@example.com",
			Name:     "Member",
			Password: "hunter22222",
		})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22222"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &model.User{Email: "member@example.com", PasswordHash: string(hash)}
	user.ID = uuid.New()

	t.Run("issues a token whose subject is the member", func(t *testing.T) {
		users := &mockUserRepo{}
		svc := newTestService(users)

		users.On("GetByEmail", mock.Anything, "member@example.com").Return(user, nil)

		resp, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "member@example.com",
			Password: "hunter22222",
		})
		require.NoError(t, err)

		jwtSvc := auth.NewJWTService(auth.Config{Secret: "test-secret", ExpiryHours: 1})
		memberID, err := jwtSvc.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, memberID)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		users := &mockUserRepo{}
		svc := newTestService(users)

		users.On("GetByEmail", mock.Anything, "member@example.com").Return(user, nil)

		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "member@example.com",
			Password: "wrong",
		})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})

	t.Run("unknown email is unauthorized, not not-found", func(t *testing.T) {
		users := &mockUserRepo{}
		svc := newTestService(users)

		users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "ghost@example.com",
			Password: "hunter22222",
		})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})
}
