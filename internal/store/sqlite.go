package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/authflow/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			scenario TEXT NOT NULL,
			host TEXT NOT NULL,
			exchange_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			url TEXT NOT NULL,
			method TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			request_headers TEXT,
			response_headers TEXT,
			post_params TEXT,
			post_mime_type TEXT,
			set_cookie TEXT,
			capture_time REAL,
			is_auth_like INTEGER NOT NULL DEFAULT 0,
			tags TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id);`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateSession(source, scenario, host string) (*types.Session, error) {
	now := time.Now().UTC()
	id, err := s.nextSessionID(now)
	if err != nil {
		return nil, err
	}
	sess := &types.Session{ID: id, Source: source, Scenario: scenario, Host: host, Status: "imported", CreatedAt: now, UpdatedAt: now}
	_, err = s.db.Exec(`INSERT INTO sessions(id,source,scenario,host,exchange_count,status,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?)`,
		sess.ID, sess.Source, sess.Scenario, sess.Host, sess.ExchangeCount, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	return sess, err
}

func (s *SQLiteStore) nextSessionID(now time.Time) (string, error) {
	prefix := fmt.Sprintf("sess_%s_", now.Format("20060102"))
	rows, err := s.db.Query(`SELECT id FROM sessions WHERE id LIKE ?`, prefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		var n int
		_, _ = fmt.Sscanf(id, prefix+"%03d", &n)
		if n > maxN {
			maxN = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, maxN+1), nil
}

func (s *SQLiteStore) GetSession(id string) (*types.Session, error) {
	row := s.db.QueryRow(`SELECT id,source,scenario,host,exchange_count,status,created_at,updated_at FROM sessions WHERE id=?`, id)
	var out types.Session
	if err := row.Scan(&out.ID, &out.Source, &out.Scenario, &out.Host, &out.ExchangeCount, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) ListSessions() ([]types.Session, error) {
	rows, err := s.db.Query(`SELECT id,source,scenario,host,exchange_count,status,created_at,updated_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Session
	for rows.Next() {
		var s1 types.Session
		if err := rows.Scan(&s1.ID, &s1.Source, &s1.Scenario, &s1.Host, &s1.ExchangeCount, &s1.Status, &s1.CreatedAt, &s1.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s1)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateSessionStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE sessions SET status=?, updated_at=? WHERE id=?`, status, time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM exchanges WHERE session_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM reports WHERE session_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveExchanges(sessionID string, exchanges []types.CapturedExchange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO exchanges(session_id,seq,url,method,status_code,request_headers,response_headers,post_params,post_mime_type,set_cookie,capture_time,is_auth_like,tags) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ex := range exchanges {
		reqH, _ := json.Marshal(ex.RequestHeaders)
		respH, _ := json.Marshal(ex.ResponseHeaders)
		params, _ := json.Marshal(ex.PostParams)
		tags, _ := json.Marshal(ex.Tags)
		var captureTime sql.NullFloat64
		if ex.Time != nil {
			captureTime = sql.NullFloat64{Float64: *ex.Time, Valid: true}
		}
		if _, err := stmt.Exec(sessionID, ex.Seq, ex.URL, ex.Method, ex.Status, string(reqH), string(respH), string(params), ex.PostMimeType, ex.SetCookie, captureTime, boolToInt(ex.IsAuthLike), string(tags)); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE sessions SET exchange_count=exchange_count+?, updated_at=? WHERE id=?`, len(exchanges), time.Now().UTC(), sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetExchanges(sessionID string) ([]types.CapturedExchange, error) {
	rows, err := s.db.Query(`SELECT id,session_id,seq,url,method,status_code,request_headers,response_headers,post_params,post_mime_type,set_cookie,capture_time,is_auth_like,tags FROM exchanges WHERE session_id=? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.CapturedExchange, 0)
	for rows.Next() {
		var ex types.CapturedExchange
		var reqH, respH, params, tags string
		var captureTime sql.NullFloat64
		var authLike int
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.Seq, &ex.URL, &ex.Method, &ex.Status, &reqH, &respH, &params, &ex.PostMimeType, &ex.SetCookie, &captureTime, &authLike, &tags); err != nil {
			return nil, err
		}
		if reqH != "" {
			_ = json.Unmarshal([]byte(reqH), &ex.RequestHeaders)
		}
		if respH != "" {
			_ = json.Unmarshal([]byte(respH), &ex.ResponseHeaders)
		}
		if params != "" {
			_ = json.Unmarshal([]byte(params), &ex.PostParams)
		}
		if tags != "" {
			_ = json.Unmarshal([]byte(tags), &ex.Tags)
		}
		if captureTime.Valid {
			t := captureTime.Float64
			ex.Time = &t
		}
		ex.IsAuthLike = authLike != 0
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveReport(sessionID string, rep *types.FlowReport) error {
	if rep == nil {
		return errors.New("report is nil")
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.Exec(`INSERT INTO reports(run_id,session_id,payload,created_at) VALUES(?,?,?,?)
	ON CONFLICT(run_id) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		rep.RunID, sessionID, string(payload), createdAt)
	return err
}

func (s *SQLiteStore) GetReports(sessionID string) ([]types.FlowReport, error) {
	rows, err := s.db.Query(`SELECT payload FROM reports WHERE session_id=? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.FlowReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rep types.FlowReport
		if err := json.Unmarshal([]byte(payload), &rep); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
