package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"minimall/internal/domain"
	"minimall/internal/repos"
)

var (
	ErrBadCreds   = errors.New("invalid email or password")
	ErrEmailInUse = errors.New("email already registered")
)

type AuthService struct {
	Users *repos.UserRepo
}

func (s *AuthService) Register(email, name, password string) (*domain.User, error) {
	if u, _ := s.Users.ByEmail(email); u != nil {
		return nil, ErrEmailInUse
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	id, err := s.Users.Create(email, name, string(hash), "USER")
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Email: email, Name: name, Role: "USER"}, nil
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}
