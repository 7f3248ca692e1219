package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"predict_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SignalRecord is one emitted trade signal, as persisted.
type SignalRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Market    string `gorm:"index"`
	AssetID   string `gorm:"index"`
	Action    string
	Side      string
	Price     string
	Size      string
	Reason    string
	CreatedAt time.Time
}

// OpportunityRecord is one detected arbitrage opportunity, as persisted.
// Markets is comma-joined; leg signals are stored as SignalRecords too.
type OpportunityRecord struct {
	ID             uint   `gorm:"primaryKey"`
	Markets        string `gorm:"index"`
	Spread         string
	ExpectedProfit string
	Legs           int
	CreatedAt      time.Time
}

// Journal is a sqlite-backed signal sink. It records what the engines
// emit; it never feeds anything back into them.
type Journal struct {
	db *gorm.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.AutoMigrate(&SignalRecord{}, &OpportunityRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordSignal persists one emitted trade signal.
func (j *Journal) RecordSignal(s domain.TradeSignal) error {
	rec := SignalRecord{
		Market:  s.Market,
		AssetID: s.AssetID,
		Action:  s.Action,
		Side:    s.Side,
		Price:   s.Price,
		Size:    s.Size,
		Reason:  s.Reason,
	}
	return j.db.Create(&rec).Error
}

// RecordOpportunity persists one opportunity and its leg signals.
func (j *Journal) RecordOpportunity(opp domain.ArbitrageOpportunity) error {
	rec := OpportunityRecord{
		Markets:        strings.Join(opp.Markets, ","),
		Spread:         opp.Spread.String(),
		ExpectedProfit: opp.ExpectedProfit.String(),
		Legs:           len(opp.Signals),
	}
	if err := j.db.Create(&rec).Error; err != nil {
		return err
	}
	for _, s := range opp.Signals {
		if err := j.RecordSignal(s); err != nil {
			return err
		}
	}
	return nil
}

// RecentSignals returns the newest signals, most recent first.
func (j *Journal) RecentSignals(limit int) ([]SignalRecord, error) {
	var recs []SignalRecord
	err := j.db.Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// RecentOpportunities returns the newest opportunities, most recent first.
func (j *Journal) RecentOpportunities(limit int) ([]OpportunityRecord, error) {
	var recs []OpportunityRecord
	err := j.db.Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
