//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"github.com/rs/zerolog"
)

func openSQLite(cfg Config, log zerolog.Logger) (KV, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
