// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for staff login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"staff@clearlens.example"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	AccessToken  string   `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string   `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string   `json:"token_type" example:"Bearer"`
	ExpiresIn    int      `json:"expires_in" example:"86400"`
	Staff        StaffDTO `json:"staff"`
}

// StaffDTO represents staff account information in responses
type StaffDTO struct {
	ID        uint   `json:"id" example:"123"`
	UUID      string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	FirstName string `json:"first_name" example:"Jane"`
	LastName  string `json:"last_name" example:"Doe"`
	Email     string `json:"email" example:"staff@clearlens.example"`
	Role      string `json:"role" example:"staff"`
	IsActive  bool   `json:"is_active" example:"true"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}
