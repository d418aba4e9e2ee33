package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"inkwell/internal/domain"
	"inkwell/internal/repos"
	"inkwell/internal/validate"
)

var ErrBadCreds = errors.New("invalid username or password")

type AuthService struct {
	db     *sqlx.DB
	Users  *repos.UserRepo
	secret []byte
	ttl    time.Duration
}

func NewAuthService(db *sqlx.DB, users *repos.UserRepo, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{db: db, Users: users, secret: secret, ttl: ttl}
}

func (s *AuthService) Secret() []byte { return s.secret }

// Register creates a customer account. The user row and its profile are written together.
func (s *AuthService) Register(ctx context.Context, username, email, password, password2 string) (*domain.User, error) {
	username, ok := validate.Username(username)
	if !ok {
		return nil, domain.Invalid("username must be 3-30 letters, digits, dots, dashes or underscores")
	}
	email, ok = validate.Email(email)
	if !ok {
		return nil, domain.Invalid("email is not valid")
	}
	if password != password2 {
		return nil, domain.Invalid("passwords do not match")
	}
	if !validate.Password(password) {
		return nil, domain.Invalid("password needs 8-64 characters with upper, lower, digit and symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var id int64
	err = repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		id, err = s.Users.WithTx(tx).Create(ctx, username, email, string(hash), domain.RoleCustomer)
		return err
	})
	if repos.IsUniqueViolation(err) {
		return nil, domain.Invalid("username %q is taken", username)
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.Users.ByID(ctx, id)
}

// Authenticate checks credentials without touching sessions.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.Users.ByUsername(ctx, username)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

// Login authenticates and binds the browser session sid to the user.
func (s *AuthService) Login(ctx context.Context, sid, username, password string) (*domain.User, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

// ByID loads a user with their current role; tokens only carry the user id.
func (s *AuthService) ByID(ctx context.Context, userID int64) (*domain.User, error) {
	return s.Users.ByID(ctx, userID)
}

// IssueToken signs an HS256 access token for u.
func (s *AuthService) IssueToken(u *domain.User) (string, time.Time, error) {
	exp := time.Now().Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"email":    u.Email,
		"exp":      exp.Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok, exp, err
}

// UserIDFromToken reads the user_id claim of a verified token.
func UserIDFromToken(tok *jwt.Token) (int64, bool) {
	if tok == nil || !tok.Valid {
		return 0, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

func (s *AuthService) ListUsers(ctx context.Context, uc domain.UserContext) ([]domain.User, error) {
	if err := uc.RequireAdmin(); err != nil {
		return nil, err
	}
	return s.Users.List(ctx)
}

// SetRole changes another account's role. Only superadmins hand out roles.
func (s *AuthService) SetRole(ctx context.Context, uc domain.UserContext, userID int64, role string) error {
	if err := uc.RequireAuthenticated(); err != nil {
		return err
	}
	if uc.Role != domain.RoleSuperadmin {
		return fmt.Errorf("%w: only a superadmin can change roles", domain.ErrPermissionDenied)
	}
	if userID == uc.UserID {
		return domain.Invalid("cannot change your own role")
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	return s.Users.SetRole(ctx, userID, r)
}
