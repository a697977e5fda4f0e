package store

// Amounts are stored as decimal TEXT so no precision is lost.
// Times are unix seconds, 0 for unset.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS campaigns (
    id                   INTEGER PRIMARY KEY,
    owner                TEXT NOT NULL,
    title                TEXT NOT NULL,
    description          TEXT NOT NULL,
    target               TEXT NOT NULL,
    amount_collected     TEXT NOT NULL,
    deadline             INTEGER NOT NULL,
    image                TEXT NOT NULL,
    claimed              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS donations (
    campaign_id          INTEGER NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
    seq                  INTEGER NOT NULL,
    donor                TEXT NOT NULL,
    amount               TEXT NOT NULL,
    PRIMARY KEY (campaign_id, seq)
);

CREATE TABLE IF NOT EXISTS loans (
    id                   INTEGER PRIMARY KEY,
    borrower             TEXT NOT NULL,
    purpose              TEXT NOT NULL,
    amount               TEXT NOT NULL,
    interest_rate_bps    INTEGER NOT NULL,
    duration_secs        INTEGER NOT NULL,
    start_time           INTEGER NOT NULL,
    end_time             INTEGER NOT NULL,
    amount_repaid        TEXT NOT NULL,
    total_contributed    TEXT NOT NULL,
    status               INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
    name                 TEXT PRIMARY KEY,
    fetched_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns(owner);
CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower);
`
