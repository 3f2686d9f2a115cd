package models

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// classifyDBError tags err as a connection or query error. Server-reported
// errors are query errors; transport failures and timeouts are connection
// errors. Cancellation keeps no kind. Anything else is treated as a query error.
func classifyDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		myErr      *gomysql.MySQLError
		pgErr      *pgconn.PgError
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		// the run was aborted, not the database
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &myErr), errors.As(err, &pgErr):
		return fmt.Errorf("%w: %s: %w", utils.ErrorQuery, op, err)
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, gomysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", utils.ErrorConnection, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", utils.ErrorQuery, op, err)
	}
}
