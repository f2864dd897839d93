package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/erilali/messenger/internal/auth"
	"github.com/erilali/messenger/internal/errors"
	"github.com/erilali/messenger/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

func newGateway(repo auth.UserRepository) *auth.Gateway {
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	return auth.NewGateway(repo, tokens, auth.WithBcryptCost(bcrypt.MinCost))
}

func TestGateway_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockUserRepository(ctrl)
	gw := newGateway(mockRepo)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			CreateUser("alice", gomock.Not("secret1")).
			Return(nil).
			Times(1)

		cred, err := gw.Register("alice", "secret1")

		req.NoError(err)
		req.NotEmpty(cred)
	})

	t.Run("should fail validation before touching the repository", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		for _, tc := range []struct{ username, password string }{
			{"", "secret1"},
			{"al", "secret1"},
			{"alice!", "secret1"},
			{"alice", ""},
			{"alice", "short"},
			{"alice", strings.Repeat("é", 40)},
		} {
			cred, err := gw.Register(tc.username, tc.password)
			req.ErrorIs(err, errors.ErrInvalidInput, "%q/%q", tc.username, tc.password)
			req.Empty(cred)
		}
	})

	t.Run("should fail when username already exists", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			CreateUser("taken", gomock.Any()).
			Return(errors.ErrUsernameTaken).
			Times(1)

		_, err := gw.Register("taken", "secret1")
		req.ErrorIs(err, errors.ErrUsernameTaken)
	})
}

func TestGateway_RegisterPasswordByteLimit(t *testing.T) {
	req := require.New(t)
	gw := newGateway(auth.NewMemoryUserRepository())

	// 40 characters but 80 bytes: too long for bcrypt.
	_, err := gw.Register("alice", strings.Repeat("é", 40))
	req.ErrorIs(err, errors.ErrInvalidInput)

	// 36 characters, exactly 72 bytes.
	password := strings.Repeat("é", 36)
	_, err = gw.Register("alice", password)
	req.NoError(err)

	cred, err := gw.Login("alice", password)
	req.NoError(err)
	req.NotEmpty(cred)
}

func TestGateway_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockUserRepository(ctrl)
	gw := newGateway(mockRepo)

	hash, err := auth.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("should login with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUser("alice").Return(auth.User{Username: "alice", PasswordHash: hash}, nil)

		cred, err := gw.Login("alice", "secret1")
		req.NoError(err)
		req.NotEmpty(cred)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUser("alice").Return(auth.User{Username: "alice", PasswordHash: hash}, nil)

		_, err := gw.Login("alice", "wrong-password")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should not reveal unknown users", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUser("ghost").Return(auth.User{}, errors.ErrNotFound)

		_, err := gw.Login("ghost", "secret1")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}

func TestGateway_RoundTripWithMemoryRepository(t *testing.T) {
	req := require.New(t)
	gw := newGateway(auth.NewMemoryUserRepository())

	registered, err := gw.Register("alice", "secret1")
	req.NoError(err)

	username, err := gw.Authenticate(string(registered))
	req.NoError(err)
	req.Equal("alice", username)

	_, err = gw.Register("alice", "another1")
	req.ErrorIs(err, errors.ErrUsernameTaken)

	loggedIn, err := gw.Login("alice", "secret1")
	req.NoError(err)
	username, err = gw.Authenticate(string(loggedIn))
	req.NoError(err)
	req.Equal("alice", username)

	_, err = gw.Authenticate("not-a-token")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestGateway_AuthenticateRejectsForeignTokens(t *testing.T) {
	req := require.New(t)
	repo := auth.NewMemoryUserRepository()
	gw := newGateway(repo)
	req.NoError(repo.CreateUser("alice", "unused"))

	other := auth.NewTokenIssuer([]byte("other-secret"), time.Hour)
	forged, err := other.Issue("alice")
	req.NoError(err)

	_, err = gw.Authenticate(forged)
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestGateway_AuthenticateRejectsUnknownUser(t *testing.T) {
	gw := newGateway(auth.NewMemoryUserRepository())
	token, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour).Issue("ghost")
	require.NoError(t, err)

	_, err = gw.Authenticate(token)
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := auth.NewTokenIssuer([]byte("test-secret"), -time.Minute)
	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestValidateHandle(t *testing.T) {
	require.NoError(t, auth.ValidateHandle("alice_01"))
	require.ErrorIs(t, auth.ValidateHandle("a"), errors.ErrInvalidInput)
	require.ErrorIs(t, auth.ValidateHandle("has space"), errors.ErrInvalidInput)
	require.ErrorIs(t, auth.ValidateHandle("waytoolongusername_123"), errors.ErrInvalidInput)
}
