package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgErrCodes(t *testing.T) {
	check := fmt.Errorf("set stock quantity: %w", &pgconn.PgError{Code: codeCheckViolation})
	unique := &pgconn.PgError{Code: codeUniqueViolation}

	assert.True(t, isCheckViolation(check), "debe ver el código a través del wrap")
	assert.False(t, isUniqueViolation(check))
	assert.True(t, isUniqueViolation(unique))
	assert.Equal(t, "", pgErrCode(errors.New("conn reset")))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	script, err := migrationsFS.ReadFile(names[0])
	require.NoError(t, err)
	sql := string(script)
	for _, table := range []string{"stock_pools", "stock_transfers", "stock_transfer_items", "stock_movements"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.True(t, strings.Contains(sql, "CHECK (quantity >= 0)"), "el pool nunca queda negativo")
}
