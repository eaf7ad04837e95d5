package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/dailyyoga/offlinekit/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	glogger "gorm.io/gorm/logger"
)

// record is one row of the records table
type record struct {
	Key       string    `gorm:"column:record_key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:longtext;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// MySQL stores records as rows of a single key/value table
type MySQL struct {
	logger logger.Logger
	db     *gorm.DB
	table  string
}

// NewMySQL opens the database, applies pool settings and migrates the records
// table
func NewMySQL(log logger.Logger, cfg *MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		cfg = DefaultMySQLConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = logger.Named(log, "store.mysql")
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: &gormLogger{
			logger:        log,
			level:         gormLogLevel(cfg.LogLevel),
			slowThreshold: cfg.SlowThreshold,
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := db.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqldb.Ping(); err != nil {
		return nil, closeOnError(sqldb, ErrConnection(err))
	}
	if err := db.Table(cfg.Table).AutoMigrate(&record{}); err != nil {
		return nil, closeOnError(sqldb, ErrConnection(err))
	}

	log.Info("mysql store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
	)

	return &MySQL{logger: log, db: db, table: cfg.Table}, nil
}

// closeOnError releases c on a failed open and returns err, joined with the
// close error if there is one
func closeOnError(c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func (m *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var r record
	err := m.db.WithContext(ctx).Table(m.table).Where("record_key = ?", key).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ErrRead(key, err)
	}
	return r.Value, true, nil
}

func (m *MySQL) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	r := record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := m.db.WithContext(ctx).Table(m.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (m *MySQL) Delete(ctx context.Context, key string) error {
	err := m.db.WithContext(ctx).Table(m.table).Where("record_key = ?", key).Delete(&record{}).Error
	if err != nil {
		return ErrWrite(key, err)
	}
	return nil
}

func (m *MySQL) Close() error {
	sqldb, err := m.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}

func gormLogLevel(level string) glogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "info":
		return glogger.Info
	default:
		return glogger.Warn
	}
}
