package services

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/store"
	"fmt"
)

type IAuthService interface {
	Register(req auth.RegisterRequest) (domain.User, Token, error)
	Login(req auth.LoginRequest) (domain.User, Token, error)
	Identify(token string) (domain.User, error)
}

type Token string

type AuthService struct {
	store  *store.Store
	tokens *auth.TokenManager
}

func NewAuthService(s *store.Store, tokens *auth.TokenManager) *AuthService {
	return &AuthService{store: s, tokens: tokens}
}

func (s *AuthService) Register(req auth.RegisterRequest) (domain.User, Token, error) {
	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	// Hashing happens in the service layer to keep the store unaware of
	// plain passwords.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.store.CreateUser(store.NewUser{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Avatar:       req.Avatar,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.tokens.Generate(string(user.ID))
	if err != nil {
		return domain.User{}, "", err
	}
	return user, Token(token), nil
}

func (s *AuthService) Login(req auth.LoginRequest) (domain.User, Token, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	user, err := s.store.GetUserByUsername(req.Username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return domain.User{}, "", errors.ErrInvalidPassword
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidPassword
	}

	token, err := s.tokens.Generate(string(user.ID))
	if err != nil {
		return domain.User{}, "", err
	}
	return user, Token(token), nil
}

// Identify resolves a bearer token to the user carrying it.
func (s *AuthService) Identify(token string) (domain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.User{}, errors.ErrInvalidToken
	}
	user, err := s.store.GetUser(domain.UserID(claims.UserID))
	if err != nil {
		return domain.User{}, errors.ErrInvalidToken
	}
	return user, nil
}
