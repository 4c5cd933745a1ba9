package postgres

// Schema creates the snapshot tables. Every table is keyed by snapshot so a
// snapshot is an immutable, versioned copy of the catalogue.
const Schema = `
CREATE TABLE IF NOT EXISTS questions (
    snapshot_id   INTEGER NOT NULL,
    question_id   INTEGER NOT NULL,
    question_text VARCHAR(1000) NOT NULL,
    score         INTEGER,
    is_relevant   BOOLEAN NOT NULL DEFAULT TRUE,
    test_id       INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, question_id),
    CONSTRAINT valid_snapshot CHECK (snapshot_id >= 0),
    CONSTRAINT valid_score CHECK (score IS NULL OR (score >= 0 AND score <= 100))
);

CREATE TABLE IF NOT EXISTS zones (
    snapshot_id INTEGER NOT NULL,
    zone_id     INTEGER NOT NULL,
    zone_name   VARCHAR(200) NOT NULL,
    is_relevant BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (snapshot_id, zone_id)
);

CREATE TABLE IF NOT EXISTS zones_questions (
    snapshot_id INTEGER NOT NULL,
    zone_id     INTEGER NOT NULL,
    question_id INTEGER NOT NULL,
    PRIMARY KEY (snapshot_id, zone_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_zones_questions_question ON zones_questions(snapshot_id, question_id);
`

const (
	queryQuestions = `
		SELECT snapshot_id, question_id, question_text, score, is_relevant, test_id
		FROM questions
		WHERE snapshot_id = $1
		ORDER BY question_id`

	queryZones = `
		SELECT snapshot_id, zone_id, zone_name, is_relevant
		FROM zones
		WHERE snapshot_id = $1
		ORDER BY zone_id`

	queryZoneMemberships = `
		SELECT snapshot_id, zone_id, question_id
		FROM zones_questions
		WHERE snapshot_id = $1
		ORDER BY zone_id, question_id`
)
