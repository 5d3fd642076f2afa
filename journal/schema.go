package journal

const tradeColumns = `
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry REAL NOT NULL,
	exit REAL NOT NULL,
	qty REAL NOT NULL,
	pnl REAL NOT NULL,
	fee REAL NOT NULL,
	rebate REAL NOT NULL,
	real_profit REAL NOT NULL,
	trade_time TEXT NOT NULL,
	created_at TEXT
`

const Schema = `
CREATE TABLE IF NOT EXISTS trades (` + tradeColumns + `);

CREATE TABLE IF NOT EXISTS balance_ops (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	op_type TEXT NOT NULL,
	amount REAL NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_balance_ops_user ON balance_ops(user_id);
`

// Indexes on columns that older databases may lack run after migration.
const indexes = `
CREATE INDEX IF NOT EXISTS idx_trades_trade_time ON trades(trade_time);
`

const reindexSQL = `
CREATE TABLE trades_tmp (` + tradeColumns + `);

INSERT INTO trades_tmp (symbol, side, entry, exit, qty, pnl, fee, rebate, real_profit, trade_time, created_at)
SELECT symbol, side, entry, exit, qty, pnl, fee, rebate, real_profit, COALESCE(trade_time, created_at, ''), created_at
FROM trades
ORDER BY trade_time ASC, id ASC;

DROP TABLE trades;
ALTER TABLE trades_tmp RENAME TO trades;
`
