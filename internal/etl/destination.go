package etl

import (
	"context"
	"errors"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes a table into a target system.
// The relational store and the Mongo mirror live in internal/dbclient;
// the flat-file backup is CSVFileWriter.
//
// Pattern: Singer target protocol.

// ErrAppendUnsupported is returned by destinations that can only replace.
var ErrAppendUnsupported = errors.New("append mode not supported")

// SyncMode determines how records are written to the destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop existing contents, write fresh
	SyncAppend  SyncMode = "append"  // add rows without deleting existing
)

// Destination writes a table to a target system and returns rows written.
type Destination interface {
	Write(ctx context.Context, target string, t *Table, mode SyncMode) (int, error)
}

// DestinationFunc adapts a plain function to the Destination interface.
type DestinationFunc func(ctx context.Context, target string, t *Table, mode SyncMode) (int, error)

func (f DestinationFunc) Write(ctx context.Context, target string, t *Table, mode SyncMode) (int, error) {
	return f(ctx, target, t, mode)
}
