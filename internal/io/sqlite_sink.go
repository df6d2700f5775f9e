package io

import (
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecopia-map/mesh_tiler/tools"
)

// Folder every row of a packaged tileset is stored under
const SQLiteRootFolder = "main"

type TilesHeader struct {
	Folder   string
	JsonName string
	TileJson []byte
}

type TilesByte struct {
	Folder   string
	TileName string
	TileData []byte
}

// Packages a whole chunk tileset into a single <output>/<chunk>.gl SQLite file, with the
// tileset.json in tiles_headers and every tile content in tiles_bytes
type SQLiteSink struct {
	path string
	db   *gorm.DB
	mu   sync.Mutex
}

func NewSQLiteSink(output, chunk string) (*SQLiteSink, error) {
	if err := tools.CreateDirectoryIfDoesNotExist(output); err != nil {
		return nil, err
	}
	path := filepath.Join(output, chunk+".gl")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	s := &SQLiteSink{path: path, db: db}
	if err := db.AutoMigrate(&TilesHeader{}, &TilesByte{}); err != nil {
		_ = s.Close()
		return nil, errors.Wrapf(err, "migrate %s", path)
	}
	if err := createIndexes(db); err != nil {
		_ = s.Close()
		return nil, err
	}
	// a rerun into the same output replaces the previous package
	if err := s.clear(); err != nil {
		_ = s.Close()
		return nil, errors.Wrapf(err, "clear %s", path)
	}
	return s, nil
}

func (s *SQLiteSink) clear() error {
	if err := s.db.Where("folder = ?", SQLiteRootFolder).Delete(&TilesHeader{}).Error; err != nil {
		return err
	}
	return s.db.Where("folder = ?", SQLiteRootFolder).Delete(&TilesByte{}).Error
}

func (s *SQLiteSink) Path() string {
	return s.path
}

// Safe for concurrent consumers, writes are serialized
func (s *SQLiteSink) WriteTile(uri string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Create(&TilesByte{Folder: SQLiteRootFolder, TileName: uri, TileData: data}).Error
}

func (s *SQLiteSink) WriteTileset(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Create(&TilesHeader{Folder: SQLiteRootFolder, JsonName: TilesetFileName, TileJson: data}).Error
}

func (s *SQLiteSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func createIndexes(db *gorm.DB) error {
	if !indexExists(db, "idx_tiles_header_folder_json_name") {
		err := db.Exec("CREATE INDEX idx_tiles_header_folder_json_name ON tiles_headers(folder, json_name)").Error
		if err != nil {
			return errors.Wrap(err, "failed to create index for tiles_headers")
		}
	}
	if !indexExists(db, "idx_tiles_byte_folder_tile_name") {
		err := db.Exec("CREATE INDEX idx_tiles_byte_folder_tile_name ON tiles_bytes(folder, tile_name)").Error
		if err != nil {
			return errors.Wrap(err, "failed to create index for tiles_bytes")
		}
	}
	return nil
}

func indexExists(db *gorm.DB, indexName string) bool {
	var count int64
	err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", indexName).Scan(&count).Error
	if err != nil {
		return false
	}
	return count > 0
}
