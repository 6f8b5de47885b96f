package storage

import (
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/config"
)

// InitDB opens the mint ledger of the configured network, one directory
// per network under DB.Path.
func InitDB(cfg *config.Config) (*leveldb.DB, error) {
	dbName := fmt.Sprintf("ledger_%s.db", cfg.Common.Network)
	dbPath := filepath.Join(cfg.DB.Path, dbName)

	// Create DB directory if it does not exist
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, err
	}

	log.Info("Successfully opened db: ", dbPath)
	return db, nil
}
