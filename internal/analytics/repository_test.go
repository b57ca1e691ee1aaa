package analytics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestWrapQueryErrKeepsPgErrorInChain(t *testing.T) {
	cause := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	wrapped := wrapQueryErr("ranking counts", fmt.Errorf("query: %w", cause))

	require.Contains(t, wrapped.Error(), "ranking counts")
	require.Contains(t, wrapped.Error(), "42P01")

	var pgErr *pgconn.PgError
	require.True(t, errors.As(wrapped, &pgErr))
	require.Equal(t, "42P01", pgErr.Code)
}

func TestWrapQueryErrPlainError(t *testing.T) {
	cause := errors.New("pool closed")
	wrapped := wrapQueryErr("invoice rows", cause)

	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "analytics: invoice rows: pool closed", wrapped.Error())
}
