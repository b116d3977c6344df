package storage

const schema = `
-- The 'sources' table tracks where imported word lists come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);

-- The 'entries' table stores each word pair. has_reward_card mirrors the cards table.
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    source_word TEXT NOT NULL,
    translation TEXT NOT NULL DEFAULT '',
    has_reward_card INTEGER NOT NULL DEFAULT 0,
    source_id INTEGER,
    import_key TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(source_id, import_key);

-- The 'answers' table is the append-only answer history of every entry.
CREATE TABLE IF NOT EXISTS answers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id TEXT NOT NULL,
    session_id TEXT,
    correct INTEGER NOT NULL,
    answered_at DATETIME NOT NULL,

    FOREIGN KEY(entry_id) REFERENCES entries(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_answers_entry ON answers(entry_id, id);

-- The 'cards' table holds at most one reward card per entry.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    entry_id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image_ref TEXT NOT NULL,
    rarity TEXT NOT NULL,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(entry_id) REFERENCES entries(id) ON DELETE CASCADE
);

-- The 'quiz_sessions' table stores rounds. position indexes quiz_questions.
CREATE TABLE IF NOT EXISTS quiz_sessions (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    status TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    finish_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_quiz_sessions_client ON quiz_sessions(client_id, started_at);

-- The 'quiz_questions' table is the question snapshot of a round.
-- entry_id is not a foreign key: entries may be deleted mid-round.
CREATE TABLE IF NOT EXISTS quiz_questions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    entry_id TEXT NOT NULL,
    prompt TEXT NOT NULL,
    options TEXT NOT NULL,
    answered INTEGER NOT NULL DEFAULT 0,
    selected TEXT NOT NULL DEFAULT '',
    correct INTEGER NOT NULL DEFAULT 0,

    UNIQUE(session_id, position),
    FOREIGN KEY(session_id) REFERENCES quiz_sessions(id) ON DELETE CASCADE
);
`
