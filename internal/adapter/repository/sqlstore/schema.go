package sqlstore

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		price NUMERIC(20, 8) NOT NULL CHECK (price > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS prices_symbol_ts_idx ON prices (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS trades (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		trade_type TEXT NOT NULL CHECK (trade_type IN ('buy', 'sell')),
		symbol TEXT NOT NULL,
		price NUMERIC(20, 8) NOT NULL CHECK (price > 0),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		ts TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		symbol TEXT PRIMARY KEY,
		quantity BIGINT NOT NULL CHECK (quantity >= 0)
	)`,
}

// Prices are TEXT in SQLite so NUMERIC affinity never turns them into floats
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS prices (
		symbol TEXT NOT NULL,
		ts TIMESTAMP NOT NULL,
		price TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS prices_symbol_ts_idx ON prices (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS trades (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		trade_type TEXT NOT NULL CHECK (trade_type IN ('buy', 'sell')),
		symbol TEXT NOT NULL,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		ts TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		symbol TEXT PRIMARY KEY,
		quantity INTEGER NOT NULL CHECK (quantity >= 0)
	)`,
}
