package database

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		phone       TEXT NOT NULL UNIQUE,
		pin_hash    TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS paysessions (
		transaction_id           TEXT PRIMARY KEY,
		amount                   BIGINT NOT NULL CHECK (amount > 0),
		status                   TEXT NOT NULL DEFAULT 'PENDING',
		callback_url             TEXT NOT NULL,
		failure_callback_url     TEXT,
		user_id                  UUID,
		user_phone               TEXT,
		wallet_tx_ref            TEXT UNIQUE,
		expires_at               TIMESTAMPTZ NOT NULL,
		completed_at             TIMESTAMPTZ,
		failure_reason           TEXT,
		callback_attempts        INTEGER NOT NULL DEFAULT 0,
		callback_delivered       BOOLEAN NOT NULL DEFAULT FALSE,
		callback_last_attempt_at TIMESTAMPTZ,
		metadata                 JSONB NOT NULL DEFAULT '{}',
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_paysessions_status_expires ON paysessions (status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_paysessions_undelivered ON paysessions (status, callback_delivered, callback_attempts)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		reference         TEXT PRIMARY KEY,
		type              TEXT NOT NULL,
		amount            BIGINT NOT NULL CHECK (amount >= 0),
		status            TEXT NOT NULL,
		user_id           UUID NOT NULL,
		previous_balance  BIGINT NOT NULL,
		new_balance       BIGINT NOT NULL,
		failure_reason    TEXT,
		completed_at      TIMESTAMPTZ,
		metadata          JSONB NOT NULL DEFAULT '{}',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions (user_id, created_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		phone       TEXT NOT NULL UNIQUE,
		pin_hash    TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		balance     INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_active   BOOLEAN NOT NULL DEFAULT 1,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS paysessions (
		transaction_id           TEXT PRIMARY KEY,
		amount                   INTEGER NOT NULL CHECK (amount > 0),
		status                   TEXT NOT NULL DEFAULT 'PENDING',
		callback_url             TEXT NOT NULL,
		failure_callback_url     TEXT,
		user_id                  TEXT,
		user_phone               TEXT,
		wallet_tx_ref            TEXT UNIQUE,
		expires_at               TIMESTAMP NOT NULL,
		completed_at             TIMESTAMP,
		failure_reason           TEXT,
		callback_attempts        INTEGER NOT NULL DEFAULT 0,
		callback_delivered       BOOLEAN NOT NULL DEFAULT 0,
		callback_last_attempt_at TIMESTAMP,
		metadata                 TEXT NOT NULL DEFAULT '{}',
		created_at               TIMESTAMP NOT NULL,
		updated_at               TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_paysessions_status_expires ON paysessions (status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_paysessions_undelivered ON paysessions (status, callback_delivered, callback_attempts)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		reference         TEXT PRIMARY KEY,
		type              TEXT NOT NULL,
		amount            INTEGER NOT NULL CHECK (amount >= 0),
		status            TEXT NOT NULL,
		user_id           TEXT NOT NULL,
		previous_balance  INTEGER NOT NULL,
		new_balance       INTEGER NOT NULL,
		failure_reason    TEXT,
		completed_at      TIMESTAMP,
		metadata          TEXT NOT NULL DEFAULT '{}',
		created_at        TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions (user_id, created_at DESC)`,
}
