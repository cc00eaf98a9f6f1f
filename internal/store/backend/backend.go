// Package backend opens the configured Slot implementation.
package backend

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/memstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

const (
	File   = "file"
	SQLite = "sqlite"
	Memory = "memory"
)

const sqliteFileName = "tada.db"

// Open returns the slot named by kind. For "file" path is a directory;
// for "sqlite" it is a database file, or a directory to hold tada.db.
func Open(kind, path string) (store.Slot, error) {
	switch strings.ToLower(kind) {
	case "", File:
		return jsonstore.New(path)
	case SQLite:
		if path == "" {
			path = sqliteFileName
		} else if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqliteFileName)
		}
		return sqlitestore.New(path)
	case Memory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", kind)
}
