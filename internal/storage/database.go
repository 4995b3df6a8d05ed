package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"bizdesk/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database configured under dbType.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		params := dbCfg.Params
		// updates report matched rows so unchanged writes are not mistaken for misses
		for _, p := range []string{"parseTime=true", "clientFoundRows=true"} {
			name, _, _ := strings.Cut(p, "=")
			if !strings.Contains(params, name) {
				params = strings.TrimPrefix(params+"&"+p, "&")
			}
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS entities (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				items_count INTEGER NOT NULL DEFAULT 0,
				next_action TEXT NOT NULL DEFAULT '',
				seq INTEGER NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS bank_categories (
				id TEXT PRIMARY KEY,
				entity_id TEXT NOT NULL,
				name TEXT NOT NULL,
				account_count INTEGER NOT NULL DEFAULT 0,
				seq INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(entity_id) REFERENCES entities(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS bank_accounts (
				id TEXT PRIMARY KEY,
				category_id TEXT NOT NULL,
				bank_name TEXT NOT NULL,
				account_number_enc TEXT NOT NULL,
				routing_number TEXT NOT NULL,
				account_type TEXT NOT NULL,
				balance REAL NOT NULL DEFAULT 0,
				currency TEXT NOT NULL DEFAULT 'SAR',
				username TEXT NOT NULL DEFAULT '',
				password_enc TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				seq INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY(category_id) REFERENCES bank_categories(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS portals (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				url TEXT NOT NULL,
				link_text TEXT NOT NULL,
				username TEXT NOT NULL,
				password_enc TEXT NOT NULL,
				seq INTEGER NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS gosi_invoices (
				id TEXT PRIMARY KEY,
				month TEXT NOT NULL,
				year INTEGER NOT NULL,
				amount REAL NOT NULL,
				status TEXT NOT NULL,
				due_date TEXT NOT NULL,
				issue_date TEXT NOT NULL,
				seq INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS employees (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				role TEXT NOT NULL,
				department TEXT NOT NULL DEFAULT '',
				basic_salary REAL NOT NULL,
				full_salary REAL NOT NULL,
				gosi_status TEXT NOT NULL,
				join_date TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				seq INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS payroll_records (
				id TEXT PRIMARY KEY,
				employee_id TEXT NOT NULL,
				month TEXT NOT NULL,
				amount REAL NOT NULL,
				status TEXT NOT NULL,
				date TEXT NOT NULL,
				seq INTEGER NOT NULL,
				FOREIGN KEY(employee_id) REFERENCES employees(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS insurance_policies (
				id TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				policy_number TEXT NOT NULL,
				expiration_date TEXT NOT NULL,
				status TEXT NOT NULL,
				members_count INTEGER NOT NULL DEFAULT 0,
				premium REAL NOT NULL DEFAULT 0,
				seq INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS vendors (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				category TEXT NOT NULL,
				contact_name TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				seq INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS vendor_invoices (
				id TEXT PRIMARY KEY,
				vendor_id TEXT NOT NULL,
				ref_number TEXT NOT NULL,
				amount REAL NOT NULL,
				date TEXT NOT NULL,
				due_date TEXT NOT NULL,
				status TEXT NOT NULL,
				seq INTEGER NOT NULL,
				FOREIGN KEY(vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS folders (
				name TEXT PRIMARY KEY,
				seq INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				size TEXT NOT NULL,
				date TEXT NOT NULL,
				expiry_date TEXT NOT NULL DEFAULT '',
				folder TEXT NOT NULL,
				seq INTEGER NOT NULL,
				FOREIGN KEY(folder) REFERENCES folders(name) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_folder ON documents(folder, seq DESC)`,
			`CREATE TABLE IF NOT EXISTS reminders (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				due_date TEXT NOT NULL,
				due_time TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL,
				completed INTEGER NOT NULL DEFAULT 0,
				entity_id TEXT NOT NULL DEFAULT '',
				seq INTEGER NOT NULL
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS entities (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(100) NOT NULL,
				status VARCHAR(20) NOT NULL,
				items_count INT NOT NULL DEFAULT 0,
				next_action VARCHAR(255) NOT NULL DEFAULT '',
				seq BIGINT NOT NULL,
				created_at DATETIME NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS bank_categories (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				entity_id VARCHAR(64) NOT NULL,
				name VARCHAR(255) NOT NULL,
				account_count INT NOT NULL DEFAULT 0,
				seq BIGINT NOT NULL,
				created_at DATETIME NOT NULL,
				INDEX idx_bank_categories_entity (entity_id),
				CONSTRAINT fk_bank_categories_entity FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS bank_accounts (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				category_id VARCHAR(64) NOT NULL,
				bank_name VARCHAR(255) NOT NULL,
				account_number_enc TEXT NOT NULL,
				routing_number VARCHAR(64) NOT NULL,
				account_type VARCHAR(64) NOT NULL,
				balance DOUBLE NOT NULL DEFAULT 0,
				currency VARCHAR(8) NOT NULL DEFAULT 'SAR',
				username VARCHAR(255) NOT NULL DEFAULT '',
				password_enc TEXT NOT NULL,
				email VARCHAR(255) NOT NULL DEFAULT '',
				seq BIGINT NOT NULL,
				created_at DATETIME NOT NULL,
				INDEX idx_bank_accounts_category (category_id),
				CONSTRAINT fk_bank_accounts_category FOREIGN KEY (category_id) REFERENCES bank_categories(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS portals (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				url VARCHAR(1024) NOT NULL,
				link_text VARCHAR(255) NOT NULL,
				username VARCHAR(255) NOT NULL,
				password_enc TEXT NOT NULL,
				seq BIGINT NOT NULL,
				created_at DATETIME NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS gosi_invoices (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				month VARCHAR(20) NOT NULL,
				year INT NOT NULL,
				amount DOUBLE NOT NULL,
				status VARCHAR(20) NOT NULL,
				due_date VARCHAR(10) NOT NULL,
				issue_date VARCHAR(10) NOT NULL,
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS employees (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				role VARCHAR(255) NOT NULL,
				department VARCHAR(255) NOT NULL DEFAULT '',
				basic_salary DOUBLE NOT NULL,
				full_salary DOUBLE NOT NULL,
				gosi_status VARCHAR(20) NOT NULL,
				join_date VARCHAR(10) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL,
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS payroll_records (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				employee_id VARCHAR(64) NOT NULL,
				month VARCHAR(20) NOT NULL,
				amount DOUBLE NOT NULL,
				status VARCHAR(20) NOT NULL,
				date VARCHAR(10) NOT NULL,
				seq BIGINT NOT NULL,
				INDEX idx_payroll_employee (employee_id),
				CONSTRAINT fk_payroll_employee FOREIGN KEY (employee_id) REFERENCES employees(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS insurance_policies (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				provider VARCHAR(255) NOT NULL,
				policy_number VARCHAR(255) NOT NULL,
				expiration_date VARCHAR(10) NOT NULL,
				status VARCHAR(20) NOT NULL,
				members_count INT NOT NULL DEFAULT 0,
				premium DOUBLE NOT NULL DEFAULT 0,
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS vendors (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				category VARCHAR(255) NOT NULL,
				contact_name VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(64) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(20) NOT NULL,
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS vendor_invoices (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				vendor_id VARCHAR(64) NOT NULL,
				ref_number VARCHAR(255) NOT NULL,
				amount DOUBLE NOT NULL,
				date VARCHAR(10) NOT NULL,
				due_date VARCHAR(10) NOT NULL,
				status VARCHAR(20) NOT NULL,
				seq BIGINT NOT NULL,
				INDEX idx_vendor_invoices_vendor (vendor_id),
				CONSTRAINT fk_vendor_invoices_vendor FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS folders (
				name VARCHAR(255) NOT NULL PRIMARY KEY,
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS documents (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(20) NOT NULL,
				size VARCHAR(32) NOT NULL,
				date VARCHAR(10) NOT NULL,
				expiry_date VARCHAR(10) NOT NULL DEFAULT '',
				folder VARCHAR(255) NOT NULL,
				seq BIGINT NOT NULL,
				INDEX idx_documents_folder (folder, seq),
				CONSTRAINT fk_documents_folder FOREIGN KEY (folder) REFERENCES folders(name) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS reminders (
				id VARCHAR(64) NOT NULL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL,
				due_date VARCHAR(10) NOT NULL,
				due_time VARCHAR(10) NOT NULL DEFAULT '',
				priority VARCHAR(10) NOT NULL,
				completed TINYINT(1) NOT NULL DEFAULT 0,
				entity_id VARCHAR(64) NOT NULL DEFAULT '',
				seq BIGINT NOT NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
