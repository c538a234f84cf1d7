package api

import (
	"net/http"

	pnet "syncfabric/internal/platform/net"
)

type loginIn struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerIn struct {
	Username         string `json:"username" validate:"required,min=3,max=64"`
	Password         string `json:"password" validate:"required,min=6"`
	RegistrationCode string `json:"registration_code" validate:"required"`
}

type tokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (d Deps) login(r *http.Request, in loginIn) (any, error) {
	token, err := d.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		return nil, err
	}
	return tokenOut{AccessToken: token, TokenType: "bearer"}, nil
}

func (d Deps) register(r *http.Request, in registerIn) (any, error) {
	token, err := d.Auth.Register(r.Context(), in.Username, in.Password, in.RegistrationCode)
	if err != nil {
		return nil, err
	}
	return tokenOut{AccessToken: token, TokenType: "bearer"}, nil
}

func (d Deps) me(r *http.Request) (any, error) {
	return map[string]any{
		"sub":      pnet.UserID(r.Context()),
		"is_admin": pnet.IsAdmin(r.Context()),
	}, nil
}
