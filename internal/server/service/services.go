package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/config"
	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	shared "github.com/KreatechIT/mrs-sub000/internal/shared/models"
	"github.com/KreatechIT/mrs-sub000/internal/shared/passhash"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type Repository interface {
	CreateAdmin(ctx context.Context, username, passwordHash string) (models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (models.Admin, error)

	CreateMember(ctx context.Context, m models.Member) (models.Member, error)
	ListMembers(ctx context.Context) ([]models.Member, error)
	GetMemberByUUID(ctx context.Context, id string) (models.Member, error)
	GetMemberByLoginCode(ctx context.Context, code string) (models.Member, error)

	CreateItem(ctx context.Context, it models.SpinItem) (models.SpinItem, error)
	ListItems(ctx context.Context, includeArchived bool) ([]models.SpinItem, error)
	GetItem(ctx context.Context, id string) (models.SpinItem, error)
	UpdateItem(ctx context.Context, it models.SpinItem) (models.SpinItem, error)
	DeleteItem(ctx context.Context, id string) error
	SetItemArchived(ctx context.Context, id string, archived bool) error
	DecrementQuantity(ctx context.Context, id string) error

	CreateSequence(ctx context.Context, itemUUID string) (models.SpinSequence, error)
	ListSequences(ctx context.Context) ([]models.SpinSequence, error)
	DeleteSequence(ctx context.Context, id string) error
	ReorderSequences(ctx context.Context, orders map[string]int64) error

	CreateRefreshToken(ctx context.Context, subjectUUID, role, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (subjectUUID, role string, expiresAt time.Time, err error)
	DeleteRefreshToken(ctx context.Context, token string) error

	RecordSpin(ctx context.Context, rec models.SpinRecord) error
	ListSpinHistory(ctx context.Context, memberUUID string, limit int) ([]models.SpinRecord, error)
}

type Services struct {
	Auth      *AuthService
	Items     *ItemsService
	Sequences *SequencesService
	Members   *MembersService
}

func NewServices(repo Repository, cfg config.Config, log *zap.Logger) *Services {
	auth := &AuthService{
		repo:       repo,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
	return &Services{
		Auth:      auth,
		Items:     &ItemsService{repo: repo},
		Sequences: &SequencesService{repo: repo},
		Members:   &MembersService{repo: repo, log: log},
	}
}

// AuthService issues HS256 access tokens and rotating opaque refresh tokens
// for admins and members.
type AuthService struct {
	repo       Repository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Identity is what a verified bearer token resolves to.
type Identity struct {
	SubjectUUID string
	Role        string
}

func (a *AuthService) RegisterAdmin(ctx context.Context, username, password string) (models.Admin, error) {
	if username == "" || password == "" {
		return models.Admin{}, errors.New("username and password required")
	}
	phc, err := passhash.Hash(password)
	if err != nil {
		return models.Admin{}, err
	}
	return a.repo.CreateAdmin(ctx, username, phc)
}

func (a *AuthService) AdminLogin(ctx context.Context, username, password string) (shared.TokenResponse, error) {
	admin, err := a.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		return shared.TokenResponse{}, ErrInvalidCredentials
	}
	ok, err := passhash.Verify(admin.PasswordHash, password)
	if err != nil || !ok {
		return shared.TokenResponse{}, ErrInvalidCredentials
	}
	return a.issuePair(ctx, admin.UUID, RoleAdmin)
}

func (a *AuthService) MemberLogin(ctx context.Context, loginCode string) (shared.TokenResponse, error) {
	m, err := a.repo.GetMemberByLoginCode(ctx, loginCode)
	if err != nil {
		return shared.TokenResponse{}, ErrInvalidCredentials
	}
	return a.issuePair(ctx, m.UUID, RoleMember)
}

func (a *AuthService) issuePair(ctx context.Context, subjectUUID, role string) (shared.TokenResponse, error) {
	access, err := a.issueAccess(subjectUUID, role)
	if err != nil {
		return shared.TokenResponse{}, err
	}
	refresh := uuid.NewString()
	if err := a.repo.CreateRefreshToken(ctx, subjectUUID, role, refresh, time.Now().Add(a.refreshTTL)); err != nil {
		return shared.TokenResponse{}, err
	}
	return shared.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *AuthService) issueAccess(subjectUUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subjectUUID,
		"role": role,
		"exp":  time.Now().Add(a.accessTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.jwtSecret)
}

// Refresh rotates the refresh token and issues a fresh pair. The spent token
// is deleted even when expired, so a stolen token is single-use at most.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (shared.TokenResponse, error) {
	subjectUUID, role, exp, err := a.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return shared.TokenResponse{}, ErrInvalidToken
	}
	_ = a.repo.DeleteRefreshToken(ctx, refreshToken)
	if time.Now().After(exp) {
		return shared.TokenResponse{}, ErrInvalidToken
	}
	return a.issuePair(ctx, subjectUUID, role)
}

func (a *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return a.repo.DeleteRefreshToken(ctx, refreshToken)
}

// ParseToken verifies the signature and expiry and returns the identity.
func (a *AuthService) ParseToken(_ context.Context, token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{SubjectUUID: sub, Role: role}, nil
}
