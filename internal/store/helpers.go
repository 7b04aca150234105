package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
	"github.com/mattn/go-sqlite3"
)

// translate maps driver errors onto the apperr taxonomy.
func translate(err error, what string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s %v", what, id)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return apperr.Conflict("%s %v already exists", what, id)
	}
	return fmt.Errorf("%s %v: %w", what, id, err)
}

func checkAffectedRows(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
