package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/thep200/github-frontier/cfg"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the process scoped persistence handle. It is opened lazily on
// first use and must be closed by whoever created it.
type Database struct {
	Config  *cfg.Config
	once    sync.Once
	db      *gorm.DB
	initErr error
}

func NewDatabase(config *cfg.Config) (*Database, error) {
	if config == nil {
		return nil, fmt.Errorf("[ERROR][DB] nil config")
	}
	return &Database{
		Config: config,
	}, nil
}

func (m *Database) DSN() string {
	config := mysqlDriver.Config{
		User:                 m.Config.Database.Username,
		Passwd:               m.Config.Database.Password,
		DBName:               m.Config.Database.Database,
		Addr:                 m.Config.Database.Host + ":" + m.Config.Database.Port,
		Net:                  "tcp",
		ParseTime:            true,
		AllowNativePasswords: true,
		Params:               map[string]string{"charset": "utf8mb4"},
	}
	return config.FormatDSN()
}

func (m *Database) dialector() (gorm.Dialector, error) {
	switch m.Config.Database.Driver {
	case "mysql":
		return mysql.Open(m.DSN()), nil
	case "sqlite":
		return sqlite.Open(m.Config.Database.SqlitePath), nil
	default:
		return nil, fmt.Errorf("[ERROR][DB] unsupported driver %q", m.Config.Database.Driver)
	}
}

func (m *Database) Db() (*gorm.DB, error) {
	m.once.Do(func() {
		dialector, err := m.dialector()
		if err != nil {
			m.initErr = err
			return
		}

		// Open connection
		var db *gorm.DB
		db, m.initErr = gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if m.initErr != nil {
			return
		}

		var sqlDB *sql.DB
		sqlDB, m.initErr = db.DB()
		if m.initErr != nil {
			return
		}

		// Setting connection pool
		maxOpen := m.Config.Database.MaxOpenConnection
		if m.Config.Database.Driver == "sqlite" {
			// một kết nối duy nhất: ":memory:" tạo database riêng cho mỗi kết nối
			maxOpen = 1
		}
		sqlDB.SetMaxIdleConns(m.Config.Database.MaxIdleConnection)
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetConnMaxLifetime(time.Duration(m.Config.Database.MaxLifeTimeConnection) * time.Second)

		m.db = db
	})
	return m.db, m.initErr
}

func (m *Database) Ping() error {
	db, err := m.Db()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (m *Database) Close() error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (m *Database) Migrate(models ...interface{}) error {
	db, err := m.Db()
	if err != nil {
		return err
	}
	return db.AutoMigrate(models...)
}
