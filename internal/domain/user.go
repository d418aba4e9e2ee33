package domain

type User struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email"`
	Hash      string `db:"password_hash" json:"-"`
	Role      Role   `db:"role" json:"role"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Context returns the per-request identity for u.
func (u *User) Context() UserContext {
	if u == nil {
		return UserContext{}
	}
	return UserContext{UserID: u.ID, Username: u.Username, Role: u.Role}
}
