package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arbcore/internal/order"
	"arbcore/internal/store"
	storemodel "arbcore/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type activePairModel = storemodel.ActivePairModel

// ActivePair is a persisted pair read back from the store.
type ActivePair struct {
	ID        string
	Symbol    string
	Orders    order.Pair
	CreatedAt time.Time
}

// GormStore implements store.ActivePairStore using Gorm + SQLite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.ActivePairStore = (*GormStore)(nil)

// NewGormStore opens (or creates) the pair database at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: active pair store path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&activePairModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// inserts from concurrent trades serialize on the sqlite writer lock
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put appends pair as a new row.
func (s *GormStore) Put(ctx context.Context, pair order.Pair) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if len(pair) == 0 {
		return errors.New("gorm store: empty pair")
	}
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode pair: %w", err)
	}
	row := activePairModel{
		ID:         uuid.NewString(),
		OrdersJSON: datatypes.JSON(raw),
		CreatedAt:  s.now(),
	}
	for _, o := range pair {
		if o == nil {
			continue
		}
		if row.Symbol == "" {
			row.Symbol = o.Symbol
		}
		switch o.Side {
		case order.SideBuy:
			if row.BuyBroker == "" {
				row.BuyBroker = string(o.Broker)
				row.Size = o.Size
			}
		case order.SideSell:
			if row.SellBroker == "" {
				row.SellBroker = string(o.Broker)
			}
		}
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// List returns stored pairs, oldest first.
func (s *GormStore) List(ctx context.Context) ([]ActivePair, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var rows []activePairModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ActivePair, 0, len(rows))
	for _, row := range rows {
		var pair order.Pair
		if err := json.Unmarshal(row.OrdersJSON, &pair); err != nil {
			return nil, fmt.Errorf("decode pair %s: %w", row.ID, err)
		}
		out = append(out, ActivePair{
			ID:        row.ID,
			Symbol:    row.Symbol,
			Orders:    pair,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// Delete removes a pair once it has been reconciled.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&activePairModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
