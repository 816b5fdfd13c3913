package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (goods/skus)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users and addresses exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id INTEGER NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Addresses
CREATE TABLE IF NOT EXISTS addresses(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  receiver TEXT NOT NULL,
  mobile TEXT NOT NULL,
  province TEXT NOT NULL,
  city TEXT NOT NULL,
  place TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);

-- Goods (SPU) and SKUs (variants)
CREATE TABLE IF NOT EXISTS goods(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  sales INTEGER NOT NULL DEFAULT 0 CHECK (sales >= 0),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS skus(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  goods_id INTEGER NOT NULL REFERENCES goods(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  sales INTEGER NOT NULL DEFAULT 0 CHECK (sales >= 0),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_skus_goods ON skus(goods_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL REFERENCES users(id),
  address_id INTEGER NOT NULL,
  receiver TEXT NOT NULL,
  address_text TEXT NOT NULL,
  pay_method TEXT NOT NULL CHECK (pay_method IN ('CASH','ALIPAY')),
  status TEXT NOT NULL,
  total_count INTEGER NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  freight NUMERIC NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  sku_id INTEGER NOT NULL REFERENCES skus(id),
  count INTEGER NOT NULL CHECK (count >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, sku_id)
);

-- Payment records (one per settled order)
CREATE TABLE IF NOT EXISTS payments(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL UNIQUE REFERENCES orders(id),
  trade_id TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM goods`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo goods/skus")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO goods(id,name,sales) VALUES
	  (1,'Thermos Mug',0),
	  (2,'Mechanical Keyboard',0),
	  (3,'Canvas Backpack',0)`)

	tx.MustExec(`INSERT INTO skus(id,goods_id,name,price,stock,sales) VALUES
	  (1,1,'Thermos Mug 350ml Silver','58.00',120,0),
	  (2,1,'Thermos Mug 500ml Black','68.00',80,0),
	  (3,2,'Mechanical Keyboard 87-key Brown','329.00',35,0),
	  (4,2,'Mechanical Keyboard 104-key Red','399.00',0,0),
	  (5,3,'Canvas Backpack 15L Olive','129.00',12,0)`)

	return tx.Commit()
}

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		Email, Name, Role, Hash string
	}
	mk := func(email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("alice@minimall.test", "Alice", "USER", "Passw0rd!"),
		mk("admin@minimall.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(email,name,password_hash,role)
			VALUES(?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	// A default shipping address for the demo user.
	if _, err := tx.Exec(`
		INSERT INTO addresses(user_id, receiver, mobile, province, city, place)
		SELECT u.id, 'Alice', '13800000000', 'MD', 'College Park', '123 Campus Dr'
		FROM users u
		WHERE u.email = 'alice@minimall.test'
		  AND NOT EXISTS (SELECT 1 FROM addresses a WHERE a.user_id = u.id)
	`); err != nil {
		return err
	}

	return tx.Commit()
}
