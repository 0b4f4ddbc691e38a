package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/task"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=12,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is the successful response for register and login.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// TokenResponse is the successful response for the token refresh endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse is the public representation of a user account.
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUserResponse converts a domain user to its API representation.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	}
}

// UpdateProfileRequest defines the payload for profile updates. Omitted
// fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=100"`
	Email     *string `json:"email"      validate:"omitempty,email"`
}

// UpdatePasswordRequest defines the payload for password changes.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=12,max=72"`
}

// CreateNoteRequest defines the payload for note creation.
type CreateNoteRequest struct {
	Title       string   `json:"title"        validate:"required,max=255"`
	Content     string   `json:"content"      validate:"required"`
	ContentType string   `json:"content_type" validate:"omitempty,oneof=text markdown"`
	Tags        []string `json:"tags"         validate:"omitempty,dive,max=50"`
}

// UpdateNoteRequest defines the payload for note updates. Omitted fields
// are left unchanged.
type UpdateNoteRequest struct {
	Title       *string   `json:"title"        validate:"omitempty,max=255"`
	Content     *string   `json:"content"      validate:"omitempty"`
	ContentType *string   `json:"content_type" validate:"omitempty,oneof=text markdown"`
	Tags        *[]string `json:"tags"         validate:"omitempty,dive,max=50"`
}

// NoteResponse is the public representation of a note.
type NoteResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	ContentType     string    `json:"content_type"`
	Tags            []string  `json:"tags"`
	WordCount       int       `json:"word_count"`
	EnhancedContent string    `json:"enhanced_content,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewNoteResponse converts a domain note to its API representation.
func NewNoteResponse(note *domain.Note) NoteResponse {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	return NoteResponse{
		ID:              note.ID,
		Title:           note.Title,
		Content:         note.Content,
		ContentType:     string(note.ContentType),
		Tags:            tags,
		WordCount:       note.WordCount,
		EnhancedContent: note.EnhancedContent,
		Summary:         note.Summary,
		CreatedAt:       note.CreatedAt,
		UpdatedAt:       note.UpdatedAt,
	}
}

// NoteListResponse is a page of notes plus pagination metadata.
type NoteListResponse struct {
	Notes  []NoteResponse `json:"notes"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// TaskAcceptedResponse acknowledges a background task request. The client
// can poll the task endpoint with the returned ID.
type TaskAcceptedResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	Status string    `json:"status"`
}

// TaskResponse is the public representation of a background task.
type TaskResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewTaskResponse converts a task record to its API representation.
func NewTaskResponse(rec *task.Record) TaskResponse {
	return TaskResponse{
		ID:          rec.ID,
		Type:        rec.Type,
		Status:      string(rec.Status),
		Attempts:    rec.Attempts,
		Result:      rec.Result,
		Error:       rec.ErrorMessage,
		CreatedAt:   rec.CreatedAt,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
}

// TaskListResponse is the user's recent tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}
