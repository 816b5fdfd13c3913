package domain

type User struct {
	ID    int64  `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	Hash  string `db:"password_hash" json:"-"`
	Role  string `db:"role" json:"role"`
}

type Address struct {
	ID       int64  `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"user_id"`
	Receiver string `db:"receiver" json:"receiver"`
	Mobile   string `db:"mobile" json:"mobile"`
	Province string `db:"province" json:"province"`
	City     string `db:"city" json:"city"`
	Place    string `db:"place" json:"place"`
}

// Text renders the single-line form snapshotted onto orders.
func (a Address) Text() string {
	return a.Province + " " + a.City + " " + a.Place
}
