package transform

import (
	"context"

	"dwhpipe/internal/warehouse"
	"dwhpipe/pkg/errors"
)

// Dimension inserts are conflict-skipping: Redshift does not enforce
// primary keys and has no ON CONFLICT clause, so each statement anti-joins
// the target table and inserts only rows whose natural key is absent.
// Re-running any of them against unchanged staging data adds no rows.

// Each user keeps the values of their most recent event, so a mid-dataset
// free-to-paid upgrade lands as level='paid'.
const insertUsers = `
INSERT INTO users (user_id, first_name, last_name, gender, level)
SELECT userId, firstName, lastName, gender, level
FROM (
    SELECT se.userId, se.firstName, se.lastName, se.gender, se.level,
           ROW_NUMBER() OVER (PARTITION BY se.userId ORDER BY se.ts DESC) AS rn
    FROM staging_events se
    WHERE se.page = 'NextSong'
      AND se.userId IS NOT NULL
) latest
WHERE rn = 1
  AND NOT EXISTS (SELECT 1 FROM users u WHERE u.user_id = latest.userId)`

const insertArtists = `
INSERT INTO artists (artist_id, name, location, latitude, longitude)
SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM (
    SELECT ss.artist_id, ss.artist_name, ss.artist_location,
           ss.artist_latitude, ss.artist_longitude,
           ROW_NUMBER() OVER (PARTITION BY ss.artist_id ORDER BY ss.year DESC) AS rn
    FROM staging_songs ss
    WHERE ss.artist_id IS NOT NULL
) ranked
WHERE rn = 1
  AND NOT EXISTS (SELECT 1 FROM artists a WHERE a.artist_id = ranked.artist_id)`

const insertSongs = `
INSERT INTO songs (song_id, title, artist_id, year, duration)
SELECT song_id, title, artist_id, year, duration
FROM (
    SELECT ss.song_id, ss.title, ss.artist_id, ss.year, ss.duration,
           ROW_NUMBER() OVER (PARTITION BY ss.song_id ORDER BY ss.year DESC) AS rn
    FROM staging_songs ss
    WHERE ss.song_id IS NOT NULL
) ranked
WHERE rn = 1
  AND NOT EXISTS (SELECT 1 FROM songs s WHERE s.song_id = ranked.song_id)`

// Only NextSong events feed the time dimension, so every fact start_time
// resolves to a time row.
const insertTime = `
INSERT INTO time (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT
    DATEADD(ms, se.ts, '1970-01-01 00:00:00') AS start_time,
    EXTRACT(hour FROM start_time) AS hour,
    EXTRACT(day FROM start_time) AS day,
    EXTRACT(week FROM start_time) AS week,
    EXTRACT(month FROM start_time) AS month,
    EXTRACT(year FROM start_time) AS year,
    EXTRACT(weekday FROM start_time) AS weekday
FROM staging_events se
WHERE se.page = 'NextSong'
  AND se.ts IS NOT NULL
  AND NOT EXISTS (
      SELECT 1 FROM time t
      WHERE t.start_time = DATEADD(ms, se.ts, '1970-01-01 00:00:00'))`

// The catalog join is a LEFT JOIN: an event with no matching song still
// yields a fact row with null song and artist keys. Events without a user
// id are excluded since user_id is a required key. The anti-join on
// (start_time, user_id, session_id) keeps re-runs from appending
// duplicate fact rows.
const insertSongplays = `
INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT
    DATEADD(ms, se.ts, '1970-01-01 00:00:00') AS start_time,
    se.userId AS user_id,
    se.level,
    ss.song_id,
    ss.artist_id,
    se.sessionId AS session_id,
    se.location,
    se.userAgent AS user_agent
FROM staging_events se
LEFT JOIN staging_songs ss
    ON se.song = ss.title
    AND se.artist = ss.artist_name
    AND se.length = ss.duration
WHERE se.page = 'NextSong'
  AND se.userId IS NOT NULL
  AND NOT EXISTS (
      SELECT 1 FROM songplays sp
      WHERE sp.start_time = DATEADD(ms, se.ts, '1970-01-01 00:00:00')
        AND sp.user_id = se.userId
        AND sp.session_id = se.sessionId)`

// Statement pairs an insert with its target table for error reporting.
type Statement struct {
	Table string
	SQL   string
}

// DimensionStatements returns the dimension inserts in execution order.
func DimensionStatements() []Statement {
	return []Statement{
		{Table: "users", SQL: insertUsers},
		{Table: "artists", SQL: insertArtists},
		{Table: "songs", SQL: insertSongs},
		{Table: "time", SQL: insertTime},
	}
}

// FactStatement returns the songplays insert.
func FactStatement() Statement {
	return Statement{Table: "songplays", SQL: insertSongplays}
}

// Transformer converts staging rows into the star schema.
type Transformer struct {
	svc *warehouse.Service
}

// New creates a transformer bound to the warehouse service.
func New(svc *warehouse.Service) *Transformer {
	return &Transformer{svc: svc}
}

// Run populates the dimensions and then the fact table. Dimensions must
// come first: the fact insert depends on their keys existing. Any error
// aborts; the whole step is re-runnable without cleanup.
func (t *Transformer) Run(ctx context.Context) error {
	if err := t.LoadDimensions(ctx); err != nil {
		return err
	}
	return t.LoadFact(ctx)
}

// LoadDimensions executes the dimension inserts in order.
func (t *Transformer) LoadDimensions(ctx context.Context) error {
	for _, stmt := range DimensionStatements() {
		if err := t.svc.Exec(ctx, stmt.SQL); err != nil {
			return errors.TransformError("Dimension insert failed", stmt.Table, err)
		}
	}
	return nil
}

// LoadFact executes the songplays insert.
func (t *Transformer) LoadFact(ctx context.Context) error {
	stmt := FactStatement()
	if err := t.svc.Exec(ctx, stmt.SQL); err != nil {
		return errors.TransformError("Fact insert failed", stmt.Table, err)
	}
	return nil
}
