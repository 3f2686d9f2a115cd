package models

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"mysql server error", &gomysql.MySQLError{Number: 1146, Message: "Table 'source_db.source_menu_table' doesn't exist"}, utils.ErrorQuery},
		{"postgres server error", &pgconn.PgError{Code: "42P01", Message: `relation "target_menu_table" does not exist`}, utils.ErrorQuery},
		{"bad connection", driver.ErrBadConn, utils.ErrorConnection},
		{"mysql invalid connection", gomysql.ErrInvalidConn, utils.ErrorConnection},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, utils.ErrorConnection},
		{"timeout", context.DeadlineExceeded, utils.ErrorConnection},
		{"unknown", errors.New("sql: Scan error on column index 0"), utils.ErrorQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyDBError("fetch source menus for outlet OUTLET_01", tt.err)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tt.err, "the driver error stays in the chain")
			assert.Contains(t, err.Error(), "OUTLET_01")
		})
	}
}

func TestClassifyDBError_Canceled(t *testing.T) {
	err := classifyDBError("fetch", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, utils.ErrorQuery)
	assert.NotErrorIs(t, err, utils.ErrorConnection)
	assert.Nil(t, classifyDBError("fetch", nil))
}
