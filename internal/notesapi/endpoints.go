package notesapi

import (
	"context"
	"net/http"
	"net/url"
)

// Category values accepted by the API.
const (
	CategoryHome     = "Home"
	CategoryWork     = "Work"
	CategoryPersonal = "Personal"
)

// Categories lists every valid note category.
var Categories = []string{CategoryHome, CategoryWork, CategoryPersonal}

// User is the data member of user responses.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Note is the data member of note responses.
type Note struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
	UserID      string `json:"user_id"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// RegisterRequest is the body of POST users/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the body of PATCH users/profile.
type ProfileUpdate struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// ChangePasswordRequest is the body of POST users/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// NoteInput is the body of POST notes and PUT notes/{id}.
type NoteInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Completed   *bool  `json:"completed,omitempty"`
}

// HealthCheck calls GET health-check.
func (c *Client) HealthCheck(ctx context.Context, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "health-check", nil, opts...)
}

// Register calls POST users/register.
func (c *Client) Register(ctx context.Context, in RegisterRequest, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "users/register", in, opts...)
}

// Login calls POST users/login.
func (c *Client) Login(ctx context.Context, in LoginRequest, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "users/login", in, opts...)
}

// Profile calls GET users/profile.
func (c *Client) Profile(ctx context.Context, token string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "users/profile", nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// UpdateProfile calls PATCH users/profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, in ProfileUpdate, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, "users/profile", in, append([]RequestOption{WithToken(token)}, opts...)...)
}

// ChangePassword calls POST users/change-password.
func (c *Client) ChangePassword(ctx context.Context, token string, in ChangePasswordRequest, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "users/change-password", in, append([]RequestOption{WithToken(token)}, opts...)...)
}

// Logout calls DELETE users/logout.
func (c *Client) Logout(ctx context.Context, token string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, "users/logout", nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// DeleteAccount calls DELETE users/delete-account.
func (c *Client) DeleteAccount(ctx context.Context, token string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, "users/delete-account", nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// CreateNote calls POST notes. body is usually a NoteInput; negative
// scenarios pass a map to send values the typed struct cannot express.
func (c *Client) CreateNote(ctx context.Context, token string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, "notes", body, append([]RequestOption{WithToken(token)}, opts...)...)
}

// ListNotes calls GET notes.
func (c *Client) ListNotes(ctx context.Context, token string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, "notes", nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// GetNote calls GET notes/{id}.
func (c *Client) GetNote(ctx context.Context, token, id string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, notePath(id), nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// UpdateNote calls PUT notes/{id}.
func (c *Client) UpdateNote(ctx context.Context, token, id string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, notePath(id), body, append([]RequestOption{WithToken(token)}, opts...)...)
}

// PatchNote calls PATCH notes/{id}, typically with {"completed": bool}.
func (c *Client) PatchNote(ctx context.Context, token, id string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, notePath(id), body, append([]RequestOption{WithToken(token)}, opts...)...)
}

// DeleteNote calls DELETE notes/{id}.
func (c *Client) DeleteNote(ctx context.Context, token, id string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, notePath(id), nil, append([]RequestOption{WithToken(token)}, opts...)...)
}

// notePath escapes id as one path segment. A corrupted id such as "+abc"
// still reaches the server so it can reject it.
func notePath(id string) string {
	return "notes/" + url.PathEscape(id)
}
