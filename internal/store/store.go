// Package store is the durable proxy record (C4): a modernc.org/sqlite
// table behind database/sql, with the insert_new, get_scan, get_valid and
// batched-upsert operations the scraper pipeline and test engine rely on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neskk/PoGo-Proxies/internal/model"
	"github.com/neskk/PoGo-Proxies/internal/proxyparser"
)

const insertChunkSize = 250

// Store wraps the proxy table's operations over one *sql.DB.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path, runs any
// pending migrations, and verifies the schema_version row is not newer
// than this build understands.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serialises writers; avoid SQLITE_BUSY churn.

	s := &Store{db: db}

	before, hadVersionTable, err := s.schemaVersionIfExists(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if hadVersionTable && before > CurrentSchemaVersion {
		db.Close()
		return nil, ErrSchemaTooNew
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	// The v1->v2 migration widens the hash formula to cover credentials;
	// rows inserted under v1 carry stale hashes and must be recomputed.
	if hadVersionTable && before < 2 {
		if err := s.RehashAll(context.Background()); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) schemaVersionIfExists(ctx context.Context) (version int, exists bool, err error) {
	var name string
	err = s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='version'`).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	v, err := s.schemaVersion(ctx)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT val FROM version WHERE key = 'schema_version'`).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// InsertNew inserts every proxy in batch that is not already present
// (matched by hash), in chunks of at most 250, one transaction per chunk.
// A duplicate-key error within a chunk is logged by the caller via the
// returned per-chunk error slice and never aborts the remaining chunks.
func (s *Store) InsertNew(ctx context.Context, batch []model.ParsedProxy) (inserted int, chunkErrs []error) {
	for start := 0; start < len(batch); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		n, err := s.insertChunk(ctx, chunk)
		inserted += n
		if err != nil {
			chunkErrs = append(chunkErrs, err)
		}
	}
	return inserted, chunkErrs
}

func (s *Store) insertChunk(ctx context.Context, chunk []model.ParsedProxy) (int, error) {
	existing, err := s.existingHashes(ctx, hashesOf(chunk))
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO proxy
		(ip, port, protocol, username, password, hash, insert_date, fail_count, anonymous, niantic, ptc_login, ptc_signup)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	var dupErr error
	for _, p := range chunk {
		if existing[p.Hash] {
			continue
		}

		ip, err := model.IPToUint32(p.IP)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(p.Port)
		if err != nil {
			continue
		}

		if _, err := stmt.ExecContext(ctx, ip, port, p.Protocol, p.Username, p.Password, p.Hash, now,
			model.StatusUnknown, model.StatusUnknown, model.StatusUnknown, model.StatusUnknown); err != nil {
			// Duplicate-key races (ip, port) collide even though the hash
			// didn't: keep going, never abort the chunk, and return the
			// first such error for the caller to log.
			if dupErr == nil {
				dupErr = err
			}
			continue
		}
		inserted++
		existing[p.Hash] = true
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}
	if dupErr != nil {
		return inserted, dupErr
	}
	return inserted, nil
}

func (s *Store) existingHashes(ctx context.Context, hashes []uint32) (map[uint32]bool, error) {
	result := make(map[uint32]bool, len(hashes))
	if len(hashes) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		args[i] = h
	}

	query := fmt.Sprintf(`SELECT hash FROM proxy WHERE hash IN (%s)`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h uint32
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		result[h] = true
	}
	return result, rows.Err()
}

func hashesOf(batch []model.ParsedProxy) []uint32 {
	out := make([]uint32, len(batch))
	for i, p := range batch {
		out[i] = p.Hash
	}
	return out
}

// GetScan returns up to limit rows eligible for (re-)testing: never
// scanned, or last scanned before now-age and not yet garbage, excluding
// any hash in exclude and optionally filtered to one protocol. Results are
// ordered never-tested first, then oldest-tested first.
func (s *Store) GetScan(ctx context.Context, limit int, exclude []uint32, age time.Duration, protocol *model.Protocol) ([]model.ParsedProxy, error) {
	cutoff := time.Now().UTC().Add(-age)

	query := strings.Builder{}
	query.WriteString(`SELECT ip, port, protocol, username, password, hash FROM proxy
		WHERE (scan_date IS NULL OR (scan_date < ? AND fail_count < ?))`)
	args := []any{cutoff, model.FailThreshold}

	if len(exclude) > 0 {
		placeholders := make([]string, len(exclude))
		for i, h := range exclude {
			placeholders[i] = "?"
			args = append(args, h)
		}
		query.WriteString(fmt.Sprintf(` AND hash NOT IN (%s)`, strings.Join(placeholders, ",")))
	}
	if protocol != nil {
		query.WriteString(` AND protocol = ?`)
		args = append(args, *protocol)
	}
	query.WriteString(` ORDER BY scan_date ASC, insert_date ASC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ParsedProxy
	for rows.Next() {
		var ip uint32
		var port int
		var protoVal int
		var username, password string
		var hash uint32

		if err := rows.Scan(&ip, &port, &protoVal, &username, &password, &hash); err != nil {
			return nil, err
		}

		result = append(result, model.ParsedProxy{
			Hash:     hash,
			IP:       model.Uint32ToIP(ip),
			Port:     strconv.Itoa(port),
			Protocol: model.Protocol(protoVal),
			Username: username,
			Password: password,
		})
	}
	return result, rows.Err()
}

// GetValid returns proxies that passed every stage within age, ordered by
// ascending latency. When requireAnonymous is set, anonymous must also be
// OK; otherwise its value is ignored. A limit of zero or less returns every
// matching row.
func (s *Store) GetValid(ctx context.Context, limit int, requireAnonymous bool, age time.Duration, protocol *model.Protocol) ([]model.Proxy, error) {
	cutoff := time.Now().UTC().Add(-age)

	query := strings.Builder{}
	query.WriteString(`SELECT ip, port, protocol, username, password, hash, insert_date, scan_date, latency, fail_count, anonymous, niantic, ptc_login, ptc_signup
		FROM proxy
		WHERE scan_date > ? AND fail_count = 0 AND niantic = ? AND ptc_login = ? AND ptc_signup = ?`)
	args := []any{cutoff, model.StatusOK, model.StatusOK, model.StatusOK}

	if requireAnonymous {
		query.WriteString(` AND anonymous = ?`)
		args = append(args, model.StatusOK)
	}
	if protocol != nil {
		query.WriteString(` AND protocol = ?`)
		args = append(args, *protocol)
	}
	query.WriteString(` ORDER BY latency ASC LIMIT ?`)
	if limit <= 0 {
		limit = -1 // SQLite: a negative LIMIT means no limit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProxy(row rowScanner) (model.Proxy, error) {
	var p model.Proxy
	var scanDate sql.NullTime
	var latency sql.NullInt64

	if err := row.Scan(&p.IP, &p.Port, &p.Protocol, &p.Username, &p.Password, &p.Hash,
		&p.InsertDate, &scanDate, &latency, &p.FailCount,
		&p.Anonymous, &p.Niantic, &p.PTCLogin, &p.PTCSignup); err != nil {
		return model.Proxy{}, err
	}

	if scanDate.Valid {
		t := scanDate.Time
		p.ScanDate = &t
	}
	if latency.Valid {
		l := int(latency.Int64)
		p.Latency = &l
	}
	return p, nil
}

// UpsertMany replaces every row keyed by (ip, port) in a single
// transaction, the test engine's batched writeback step.
func (s *Store) UpsertMany(ctx context.Context, jobs []model.TestJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// fail_count is computed against the row's prior value (0 when the
	// niantic, ptc_login and ptc_signup stages all passed, incremented by 1
	// otherwise) rather than trusted from the job, since the DB row is the
	// sole authority on a proxy's failure streak. anonymous is left out of
	// the reset, as GetValid treats it as optional.
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO proxy
		(ip, port, protocol, username, password, hash, insert_date, scan_date, latency, fail_count, anonymous, niantic, ptc_login, ptc_signup)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
		ON CONFLICT (ip, port) DO UPDATE SET
			protocol=excluded.protocol, username=excluded.username, password=excluded.password, hash=excluded.hash,
			scan_date=excluded.scan_date, latency=excluded.latency,
			fail_count=CASE WHEN excluded.niantic=0 AND excluded.ptc_login=0 AND excluded.ptc_signup=0
				THEN 0 ELSE proxy.fail_count + 1 END,
			anonymous=excluded.anonymous, niantic=excluded.niantic, ptc_login=excluded.ptc_login, ptc_signup=excluded.ptc_signup`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, job := range jobs {
		ip, err := model.IPToUint32(job.Proxy.IP)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(job.Proxy.Port)
		if err != nil {
			continue
		}

		var latency any
		if l := job.MeanLatencyMs(); job.AllOK() && l > 0 {
			latency = l
		}

		if _, err := stmt.ExecContext(ctx, ip, port, job.Proxy.Protocol, job.Proxy.Username, job.Proxy.Password, job.Proxy.Hash,
			now, now, latency,
			job.Anonymous.Status, job.Niantic.Status, job.PTCLogin.Status, job.PTCSignup.Status); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// CleanFailed deletes every row whose fail_count has reached the garbage
// threshold, returning the number of rows removed.
func (s *Store) CleanFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM proxy WHERE fail_count >= ?`, model.FailThreshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RehashAll recomputes hash for every row, used by the v1->v2 schema
// migration when the hash formula widened to cover credentials.
func (s *Store) RehashAll(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, port, username, password FROM proxy`)
	if err != nil {
		return err
	}

	type key struct {
		ip, port       int
		username, pass string
	}
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.ip, &k.port, &k.username, &k.pass); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE proxy SET hash = ? WHERE ip = ? AND port = ?`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, k := range keys {
		newHash := proxyparser.Hash(model.Uint32ToIP(uint32(k.ip)), strconv.Itoa(k.port), k.username, k.pass)
		if _, err := stmt.ExecContext(ctx, newHash, k.ip, k.port); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
