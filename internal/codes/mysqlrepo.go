package codes

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS mm_codes (
	code VARCHAR(64) NOT NULL,
	code_lower VARCHAR(64) NOT NULL PRIMARY KEY,
	owner_id VARCHAR(64) NOT NULL DEFAULT '',
	ip VARCHAR(64) NOT NULL,
	port INT NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

type MySQLRepo struct {
	db *sqlx.DB
}

func NewMySQLRepo(db *sqlx.DB) *MySQLRepo {
	return &MySQLRepo{db: db}
}

func (r *MySQLRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *MySQLRepo) FindByCode(ctx context.Context, code string) (*Code, error) {
	var out Code
	err := r.db.GetContext(ctx, &out,
		"SELECT * FROM mm_codes WHERE code_lower = ?", strings.ToLower(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
