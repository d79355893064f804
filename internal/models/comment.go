package models

import "time"

// Comment is attached to one review. IsOfficial is derived from the author's
// current validated flag and role, recomputed on every write.
type Comment struct {
	ID         int64     `db:"id" json:"id"`
	ReviewID   int64     `db:"review_id" json:"review_id"`
	UserID     int64     `db:"user_id" json:"-"`
	Text       string    `db:"text" json:"text"`
	IsOfficial bool      `db:"is_official" json:"is_official"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// OfficialAuthor reports whether comments by this user carry the official marker.
func OfficialAuthor(u *User) bool {
	if u == nil || !u.Validated {
		return false
	}
	return u.Role == RoleProfessor || u.Role == RoleInstitution
}
