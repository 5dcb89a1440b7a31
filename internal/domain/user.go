package domain

type User struct {
	ID             string `db:"id" json:"id"`
	Email          string `db:"email" json:"email"`
	Username       string `db:"username" json:"username"`
	FirstName      string `db:"first_name" json:"first_name"`
	LastName       string `db:"last_name" json:"last_name"`
	Phone          string `db:"phone" json:"phone_number"`
	Hash           string `db:"password_hash" json:"-"`
	ProfilePicture string `db:"profile_picture" json:"-"`
	IsVerified     bool   `db:"is_verified" json:"is_verified"`
	IsActive       bool   `db:"is_active" json:"is_active"`
	IsStaff        bool   `db:"is_staff" json:"is_staff"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	UpdatedAt      string `db:"updated_at" json:"updated_at"`

	ProfilePictureURL string `db:"-" json:"profile_picture,omitempty"`
}

// FullName falls back to the username when either name part is missing.
func (u User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}
