package api

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"StoreClient/internal/httpclient"
)

// userScopes are the cache key prefixes holding data of the signed-in
// customer.
var userScopes = []string{"user", "customer"}

// Login authenticates and stores the token with the customer identity.
func (s *Service) Login(ctx context.Context, c Credentials) (AuthResponse, error) {
	if c.DeviceName == "" {
		c.DeviceName = "storectl"
	}
	resp, err := s.http.Post(ctx, pathLogin, c, false)
	if err != nil {
		return AuthResponse{}, wrap("login", err)
	}
	return s.startSession(ctx, resp)
}

func (s *Service) Register(ctx context.Context, r Registration) (AuthResponse, error) {
	resp, err := s.http.Post(ctx, pathRegister, r, false)
	if err != nil {
		return AuthResponse{}, wrap("register", err)
	}
	return s.startSession(ctx, resp)
}

func (s *Service) startSession(ctx context.Context, resp *httpclient.Response) (AuthResponse, error) {
	ar, err := httpclient.Decode[AuthResponse](resp)
	if err != nil {
		return AuthResponse{}, err
	}
	if ar.Token == "" {
		return ar, errors.New("auth response carries no token")
	}

	// A previous customer's cached data must not leak into this session.
	s.clearUserCache(ctx)
	if err := s.session.SaveLogin(ctx, ar.Token, ar.Customer); err != nil {
		return AuthResponse{}, err
	}
	s.log.Info("customer signed in", zap.Int64("customer_id", ar.Customer.ID))
	return ar, nil
}

// Logout tells the server when it can, then always clears the local
// session and every user scoped cache entry.
func (s *Service) Logout(ctx context.Context) error {
	if s.session.IsAuthenticated(ctx) {
		if _, err := s.http.Post(ctx, pathLogout, struct{}{}, true); err != nil {
			s.log.Warn("logout request failed", zap.Error(err))
		}
	}

	err := s.session.Logout(ctx)
	s.clearUserCache(ctx)
	return wrap("logout", err)
}

func (s *Service) clearUserCache(ctx context.Context) {
	for _, scope := range userScopes {
		if _, err := s.cache.Clear(ctx, scope); err != nil {
			s.log.Warn("clear user cache", zap.String("scope", scope), zap.Error(err))
		}
	}
}

// CurrentCustomer returns the identity stored at login.
func (s *Service) CurrentCustomer(ctx context.Context) (Customer, bool, error) {
	var c Customer
	ok, err := s.session.UserData(ctx, &c)
	return c, ok, err
}
