// Package model - API types shared by handlers
package model

import "time"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message string   `json:"message"`
	User    SafeUser `json:"user"`
	Token   string   `json:"token"`
}

// UserResponse wraps a single safe user
type UserResponse struct {
	Message string   `json:"message,omitempty"`
	User    SafeUser `json:"user"`
}

// MessageResponse carries only a human readable message
type MessageResponse struct {
	Message string `json:"message"`
}

// Pagination describes a page of a listing
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// UserListResponse is a page of safe users
type UserListResponse struct {
	Users      []SafeUser `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// UserStats summarizes the account population
type UserStats struct {
	Total    int          `json:"total"`
	Active   int          `json:"active"`
	Inactive int          `json:"inactive"`
	ByRole   map[Role]int `json:"byRole"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}
