package journal

const Schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	digit INTEGER NOT NULL,
	percentage REAL NOT NULL,
	markets TEXT NOT NULL,
	held_until DATETIME NOT NULL,
	tick_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	strength TEXT NOT NULL,
	even_pct REAL NOT NULL,
	odd_pct REAL NOT NULL,
	difference REAL NOT NULL,
	ticks INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_time ON predictions(time);
CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals(symbol, time);
`
