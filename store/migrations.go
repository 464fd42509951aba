package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS matches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    player1 INTEGER NOT NULL,
    player2 INTEGER NOT NULL,
    player1_commitment TEXT NOT NULL DEFAULT '',
    player2_commitment TEXT NOT NULL DEFAULT '',
    player1_revealed TEXT NOT NULL DEFAULT '',
    player2_revealed TEXT NOT NULL DEFAULT '',
    next_turn INTEGER NOT NULL DEFAULT 0,
    winner INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'created',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (player1) REFERENCES users(id),
    FOREIGN KEY (player2) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS shots (
    match_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    firer INTEGER NOT NULL,
    target INTEGER NOT NULL,
    row INTEGER NOT NULL,
    col INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (match_id, seq),
    FOREIGN KEY (match_id) REFERENCES matches(id)
);

CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
CREATE INDEX IF NOT EXISTS idx_shots_match_id ON shots(match_id);
`
