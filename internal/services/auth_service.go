package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"onebid/internal/domain"
	"onebid/internal/repos"
)

var (
	ErrBadCreds     = &domain.Error{Kind: domain.KindUnauthorized, Msg: "invalid email or password"}
	ErrInvalidToken = &domain.Error{Kind: domain.KindUnauthorized, Msg: "invalid token"}
	ErrBanned       = &domain.Error{Kind: domain.KindForbidden, Msg: "account banned"}
)

// Claims carries the profile id as subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users  *repos.ProfileRepo
	Secret []byte
	TTL    time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewAuthService(users *repos.ProfileRepo, secret string, ttl time.Duration) *AuthService {
	return &AuthService{Users: users, Secret: []byte(secret), TTL: ttl}
}

type Signup struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *AuthService) Signup(in Signup) (*domain.Profile, string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.Users.ByEmail(in.Email); err == nil {
		return nil, "", domain.Conflict("email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", err
	}
	p := &domain.Profile{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Hash:      string(h),
	}
	if err := s.Users.Create(p); errors.Is(err, repos.ErrDuplicateEmail) {
		return nil, "", domain.Conflict("email already registered")
	} else if err != nil {
		return nil, "", fmt.Errorf("create profile: %w", err)
	}
	tok, err := s.Issue(p)
	if err != nil {
		return nil, "", err
	}
	return p, tok, nil
}

func (s *AuthService) Login(email, password string) (*domain.Profile, string, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, "", ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, "", ErrBadCreds
	}
	if u.Status == domain.AccountBanned {
		return nil, "", ErrBanned
	}
	tok, err := s.Issue(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// Issue signs an HS256 token for p.
func (s *AuthService) Issue(p *domain.Profile) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// CurrentUser resolves a bearer token to the live profile. Role and
// suspension state come from the store, not the token.
func (s *AuthService) CurrentUser(token string) (*domain.Profile, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.Users.ByID(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if u.Status == domain.AccountBanned {
		return nil, ErrBanned
	}
	return u, nil
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
