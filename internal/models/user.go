package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User comes from the user directory; this service never persists it
type User struct {
	ID            string   `json:"id"`
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	Role          UserRole `json:"role"`
	AvatarURL     *string  `json:"avatar_url,omitempty"`
	EmailVerified bool     `json:"email_verified"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
