package client

import (
	"encoding/json"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

// envelope is the shape of every API response body.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type userDTO struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u userDTO) profile() models.MasterProfile {
	return models.MasterProfile{ID: u.ID, Login: u.Login, Name: u.Name, Role: u.Role}
}

type loginResponse struct {
	User         userDTO `json:"user"`
	RefreshToken string  `json:"refreshToken,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type refreshResponse struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type updateRequest struct {
	Fields map[string]any `json:"fields"`
}
