package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const workColumns = `w.external_id, w.title, w.type, w.source, w.url, w.image_url, w.synopsis,
	w.total_episodes, w.last_episode, w.latest_episode_url, w.status, w.air_day, w.members,
	w.score, s.name, s.year, w.created_at, w.updated_at`

const workFrom = `FROM works w LEFT JOIN seasons s ON s.id = w.season_id`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WorkFilter narrows ListWorks. Zero values match everything.
type WorkFilter struct {
	AirDay string
	Status Status
}

// UpsertWork inserts or overwrites a work by external id together with its
// season, genres and studios. Everything happens in one transaction. The
// stored last episode and episode url are never touched here, and a finished
// work stays finished.
func (s *Store) UpsertWork(ctx context.Context, in WorkInput) (UpsertResult, error) {
	if err := validateWorkInput(&in); err != nil {
		return UpsertResult{}, err
	}

	var result UpsertResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var seasonID any
		if in.Season != nil {
			id, err := getOrCreateSeason(ctx, tx, *in.Season)
			if err != nil {
				return err
			}
			seasonID = id
		}

		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM works WHERE external_id = ?", in.ExternalID).Scan(&existing); err != nil {
			return fmt.Errorf("check work %d: %w", in.ExternalID, err)
		}

		now := s.timestamp()
		if _, err := tx.ExecContext(ctx, `INSERT INTO works (
				external_id, title, type, source, url, image_url, synopsis, total_episodes,
				status, air_day, members, score, season_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(external_id) DO UPDATE SET
				title = excluded.title,
				type = excluded.type,
				source = excluded.source,
				url = excluded.url,
				image_url = excluded.image_url,
				synopsis = excluded.synopsis,
				total_episodes = excluded.total_episodes,
				status = CASE WHEN works.status = 'finished' THEN works.status ELSE excluded.status END,
				air_day = excluded.air_day,
				members = excluded.members,
				score = excluded.score,
				season_id = excluded.season_id,
				updated_at = excluded.updated_at`,
			in.ExternalID, in.Title, in.Type, in.Source, in.URL, in.ImageURL, in.Synopsis,
			nullableInt(in.TotalEpisodes), string(in.Status), in.AirDay, in.Members,
			nullableFloat(in.Score), seasonID, now, now,
		); err != nil {
			return fmt.Errorf("upsert work %d: %w", in.ExternalID, err)
		}

		if err := replaceRelations(ctx, tx, in.ExternalID, "genres", "work_genres", "genre_id", in.Genres); err != nil {
			return err
		}
		if err := replaceRelations(ctx, tx, in.ExternalID, "studios", "work_studios", "studio_id", in.Studios); err != nil {
			return err
		}

		work, err := loadWork(ctx, tx, in.ExternalID)
		if err != nil {
			return err
		}
		result = UpsertResult{Created: existing == 0, Work: work}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

func validateWorkInput(in *WorkInput) error {
	if in.ExternalID <= 0 {
		return fmt.Errorf("%w: external id must be positive", ErrInvalidInput)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: work %d has no title", ErrInvalidInput, in.ExternalID)
	}
	if in.Status == "" {
		in.Status = StatusAiring
	}
	if !in.Status.valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.Season != nil {
		switch in.Season.Name {
		case SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall:
		default:
			return fmt.Errorf("%w: unknown season %q", ErrInvalidInput, in.Season.Name)
		}
	}
	return nil
}

func getOrCreateSeason(ctx context.Context, tx *sql.Tx, season Season) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO seasons (name, year) VALUES (?, ?) ON CONFLICT(name, year) DO NOTHING",
		season.Name, season.Year,
	); err != nil {
		return 0, fmt.Errorf("create season %s %d: %w", season.Name, season.Year, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM seasons WHERE name = ? AND year = ?", season.Name, season.Year,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup season %s %d: %w", season.Name, season.Year, err)
	}
	return id, nil
}

// getOrCreateNamed resolves a genre or studio by exact name. table is one of
// the fixed internal table names, never caller input.
func getOrCreateNamed(ctx context.Context, tx *sql.Tx, table, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name,
	); err != nil {
		return 0, fmt.Errorf("create %s %q: %w", table, name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}
	return id, nil
}

func replaceRelations(ctx context.Context, tx *sql.Tx, workID int64, table, joinTable, column string, names []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+joinTable+" WHERE work_id = ?", workID); err != nil {
		return fmt.Errorf("clear %s for work %d: %w", joinTable, workID, err)
	}
	for _, name := range uniqueNames(names) {
		id, err := getOrCreateNamed(ctx, tx, table, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO "+joinTable+" (work_id, "+column+") VALUES (?, ?)", workID, id,
		); err != nil {
			return fmt.Errorf("attach %s %q to work %d: %w", table, name, workID, err)
		}
	}
	return nil
}

// uniqueNames drops blanks and duplicates. Matching stays case-sensitive.
func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// GetWork loads a work with its relations.
func (s *Store) GetWork(ctx context.Context, externalID int64) (*Work, error) {
	return loadWork(ensureContext(ctx), s.db, externalID)
}

// ListWorks returns works ordered by title.
func (s *Store) ListWorks(ctx context.Context, filter WorkFilter) ([]*Work, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + workColumns + " " + workFrom
	var (
		clauses []string
		args    []any
	)
	if filter.AirDay != "" {
		clauses = append(clauses, "w.air_day = ?")
		args = append(args, filter.AirDay)
	}
	if filter.Status != "" {
		clauses = append(clauses, "w.status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY w.title COLLATE NOCASE, w.external_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	var works []*Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan work: %w", err)
		}
		works = append(works, work)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, work := range works {
		if err := loadRelations(ctx, s.db, work); err != nil {
			return nil, err
		}
	}
	return works, nil
}

// RecordEpisode stores the latest released episode for a work. It is the
// only writer of episode progress and applies only while last_episode still
// equals update.Previous; otherwise it returns ErrStale.
func (s *Store) RecordEpisode(ctx context.Context, externalID int64, update EpisodeUpdate) error {
	if update.Episode <= 0 {
		return fmt.Errorf("%w: episode must be positive", ErrInvalidInput)
	}
	res, err := s.execWithRetry(ctx, `UPDATE works SET
			last_episode = ?,
			latest_episode_url = ?,
			status = CASE WHEN ? THEN 'finished' ELSE status END,
			updated_at = ?
		WHERE external_id = ? AND last_episode IS ?`,
		update.Episode, update.EpisodeURL, update.Finished, s.timestamp(), externalID,
		nullableInt(update.Previous),
	)
	if err != nil {
		return fmt.Errorf("record episode for work %d: %w", externalID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var exists int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM works WHERE external_id = ?", externalID).Scan(&exists); err != nil {
		return fmt.Errorf("check work %d: %w", externalID, err)
	}
	if exists == 0 {
		return fmt.Errorf("work %d: %w", externalID, ErrNotFound)
	}
	return fmt.Errorf("record episode %d for work %d: %w", update.Episode, externalID, ErrStale)
}

// MarkFinished transitions a work to the finished status.
func (s *Store) MarkFinished(ctx context.Context, externalID int64) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE works SET status = 'finished', updated_at = ? WHERE external_id = ?",
		s.timestamp(), externalID,
	)
	if err != nil {
		return fmt.Errorf("mark work %d finished: %w", externalID, err)
	}
	return requireAffected(res, externalID)
}

func requireAffected(res sql.Result, externalID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("work %d: %w", externalID, ErrNotFound)
	}
	return nil
}

func loadWork(ctx context.Context, q querier, externalID int64) (*Work, error) {
	row := q.QueryRowContext(ctx, "SELECT "+workColumns+" "+workFrom+" WHERE w.external_id = ?", externalID)
	work, err := scanWork(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("work %d: %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("load work %d: %w", externalID, err)
	}
	if err := loadRelations(ctx, q, work); err != nil {
		return nil, err
	}
	return work, nil
}

func scanWork(scanner interface{ Scan(dest ...any) error }) (*Work, error) {
	var (
		work          Work
		status        string
		totalEpisodes sql.NullInt64
		lastEpisode   sql.NullInt64
		score         sql.NullFloat64
		seasonName    sql.NullString
		seasonYear    sql.NullInt64
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&work.ExternalID,
		&work.Title,
		&work.Type,
		&work.Source,
		&work.URL,
		&work.ImageURL,
		&work.Synopsis,
		&totalEpisodes,
		&lastEpisode,
		&work.LatestEpisodeURL,
		&status,
		&work.AirDay,
		&work.Members,
		&score,
		&seasonName,
		&seasonYear,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	work.Status = Status(status)
	work.TotalEpisodes = intPtr(totalEpisodes)
	work.LastEpisode = intPtr(lastEpisode)
	work.Score = floatPtr(score)
	if seasonName.Valid {
		work.Season = &Season{Name: seasonName.String, Year: int(seasonYear.Int64)}
	}
	work.CreatedAt = parseTimeString(createdRaw)
	work.UpdatedAt = parseTimeString(updatedRaw)
	return &work, nil
}

func loadRelations(ctx context.Context, q querier, work *Work) error {
	genres, err := relationNames(ctx, q,
		"SELECT g.name FROM work_genres wg JOIN genres g ON g.id = wg.genre_id WHERE wg.work_id = ?", work.ExternalID)
	if err != nil {
		return fmt.Errorf("load genres for work %d: %w", work.ExternalID, err)
	}
	studios, err := relationNames(ctx, q,
		"SELECT st.name FROM work_studios ws JOIN studios st ON st.id = ws.studio_id WHERE ws.work_id = ?", work.ExternalID)
	if err != nil {
		return fmt.Errorf("load studios for work %d: %w", work.ExternalID, err)
	}
	work.Genres = genres
	work.Studios = studios
	return nil
}

func relationNames(ctx context.Context, q querier, query string, workID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, workID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
