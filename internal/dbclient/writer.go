package dbclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marketnav/internal/domain"
	"marketnav/internal/etl"
)

// StoreWriter is an etl.Destination that replaces a table in a database.
// The connection is opened per write and closed before Write returns, so
// the store file is released as soon as the load stage ends.
type StoreWriter struct {
	Conn     domain.DatabaseConnection
	Password string
	Logger   *zap.Logger
}

func (w *StoreWriter) Write(ctx context.Context, target string, t *etl.Table, mode etl.SyncMode) (int, error) {
	if mode == etl.SyncAppend {
		return 0, etl.ErrAppendUnsupported
	}
	conn, err := NewConnector(&w.Conn, w.Password)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := conn.TestConnection(ctx); err != nil {
		return 0, fmt.Errorf("connect %s: %w", w.Conn.Driver, err)
	}

	n, err := conn.ReplaceTable(ctx, target, t)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", target, err)
	}
	if w.Logger != nil {
		w.Logger.Debug("[store] table replaced",
			zap.String("driver", string(w.Conn.Driver)),
			zap.String("table", target),
			zap.Int("rows", n))
	}
	return n, nil
}
