package repos

import (
	"github.com/jmoiron/sqlx"

	"minimall/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id int64) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `SELECT id,email,name,password_hash,role FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(email, name, hash, role string) (int64, error) {
	res, err := r.DB.Exec(`INSERT INTO users(email,name,password_hash,role) VALUES(?,?,?,?)`,
		email, name, hash, role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *UserRepo) BindSession(sid string, userID int64) error {
	_, err := r.DB.Exec(`INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.DB.Exec(`UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

// ---------- Addresses ----------

// Address loads one address and verifies ownership in the same query;
// placement must only ship to an address belonging to the buyer.
func (r *UserRepo) Address(userID, addressID int64) (*domain.Address, error) {
	var a domain.Address
	err := r.DB.Get(&a, `
		SELECT id,user_id,receiver,mobile,province,city,place
		FROM addresses WHERE id=? AND user_id=?`, addressID, userID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *UserRepo) Addresses(userID int64) ([]domain.Address, error) {
	var out []domain.Address
	err := r.DB.Select(&out, `
		SELECT id,user_id,receiver,mobile,province,city,place
		FROM addresses WHERE user_id=? ORDER BY id`, userID)
	return out, err
}

func (r *UserRepo) CreateAddress(a domain.Address) (int64, error) {
	res, err := r.DB.Exec(`
		INSERT INTO addresses(user_id,receiver,mobile,province,city,place)
		VALUES(?,?,?,?,?,?)`,
		a.UserID, a.Receiver, a.Mobile, a.Province, a.City, a.Place)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
