package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
    id UUID PRIMARY KEY,
    username VARCHAR(30) NOT NULL UNIQUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_username CHECK (username ~ '^[A-Za-z0-9_-]{3,30}$')
);
`

const migration001Down = `
DROP TABLE IF EXISTS profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STAT SAMPLES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- One row per profile per UTC day; refreshes on the same day overwrite it.
CREATE TABLE IF NOT EXISTS stat_samples (
    profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    sample_date DATE NOT NULL,
    total_solved INTEGER NOT NULL DEFAULT 0,
    easy_solved INTEGER NOT NULL DEFAULT 0,
    medium_solved INTEGER NOT NULL DEFAULT 0,
    hard_solved INTEGER NOT NULL DEFAULT 0,
    ranking INTEGER NOT NULL DEFAULT 5000000,
    contest_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    ranking_points INTEGER,
    fetched_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (profile_id, sample_date),
    CONSTRAINT valid_counts CHECK (
        total_solved >= 0 AND easy_solved >= 0 AND medium_solved >= 0
        AND hard_solved >= 0 AND ranking >= 0
    ),
    CONSTRAINT valid_points CHECK (ranking_points IS NULL OR ranking_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_stat_samples_date ON stat_samples(sample_date);
`

const migration002Down = `
DROP TABLE IF EXISTS stat_samples;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE GROUPS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS groups (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    joined_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (group_id, profile_id)
);

CREATE INDEX IF NOT EXISTS idx_group_members_profile ON group_members(profile_id);
`

const migration003Down = `
DROP TABLE IF EXISTS group_members;
DROP TABLE IF EXISTS groups;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE GROUP SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- One snapshot per group per UTC day; rebuilding the same day overwrites it.
CREATE TABLE IF NOT EXISTS group_snapshots (
    group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    snapshot_date DATE NOT NULL,
    version INTEGER NOT NULL,
    leaderboard JSONB NOT NULL,
    gainers JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (group_id, snapshot_date),
    CONSTRAINT leaderboard_not_empty CHECK (jsonb_array_length(leaderboard) > 0)
);
`

const migration004Down = `
DROP TABLE IF EXISTS group_snapshots;
`
