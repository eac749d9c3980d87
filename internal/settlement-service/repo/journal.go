package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// dialect isola o DDL e os placeholders de cada banco
type dialect struct {
	name      string
	schema    string
	insert    string
	selectAll string
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS settlement_receipts (
			seq           BIGINT PRIMARY KEY,
			from_addr     TEXT NOT NULL,
			to_addr       TEXT NOT NULL,
			value_wei     NUMERIC(78,0) NOT NULL,
			method        TEXT NOT NULL,
			args          JSONB,
			notifications JSONB,
			committed_at  TIMESTAMPTZ NOT NULL
		)`,
	insert: `
		INSERT INTO settlement_receipts
		  (seq, from_addr, to_addr, value_wei, method, args, notifications, committed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
	selectAll: `
		SELECT seq, from_addr, to_addr, value_wei::text, method, COALESCE(args::text, ''), COALESCE(notifications::text, ''), committed_at
		FROM settlement_receipts
		ORDER BY seq`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS settlement_receipts (
			seq           INTEGER PRIMARY KEY,
			from_addr     TEXT NOT NULL,
			to_addr       TEXT NOT NULL,
			value_wei     TEXT NOT NULL,
			method        TEXT NOT NULL,
			args          TEXT,
			notifications TEXT,
			committed_at  INTEGER NOT NULL
		)`,
	insert: `
		INSERT INTO settlement_receipts
		  (seq, from_addr, to_addr, value_wei, method, args, notifications, committed_at)
		VALUES (?,?,?,?,?,?,?,?)`,
	selectAll: `
		SELECT seq, from_addr, to_addr, value_wei, method, COALESCE(args, ''), COALESCE(notifications, ''), committed_at
		FROM settlement_receipts
		ORDER BY seq`,
}

// SQLJournal persiste os receipts de chamadas confirmadas (append-only)
type SQLJournal struct {
	db *sql.DB
	d  dialect
}

// NewPostgres cria o journal no Postgres e garante a tabela
func NewPostgres(ctx context.Context, db *sql.DB) (*SQLJournal, error) {
	return newSQLJournal(ctx, db, postgresDialect)
}

// NewSQLite cria o journal no SQLite e garante a tabela
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLJournal, error) {
	return newSQLJournal(ctx, db, sqliteDialect)
}

func newSQLJournal(ctx context.Context, db *sql.DB, d dialect) (*SQLJournal, error) {
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("%s: create settlement_receipts: %w", d.name, err)
	}
	return &SQLJournal{db: db, d: d}, nil
}

// Append grava um receipt. Sequência repetida falha pela PK, nunca sobrescreve.
func (j *SQLJournal) Append(ctx context.Context, rc chain.Receipt) error {
	notes, err := json.Marshal(rc.Notifications)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}
	var args any
	if len(rc.Args) > 0 {
		args = string(rc.Args)
	}
	value := "0"
	if rc.Value != nil {
		value = rc.Value.Dec()
	}

	var committedAt any = rc.CommittedAt.UTC()
	if j.d.name == "sqlite" {
		committedAt = rc.CommittedAt.UTC().UnixNano()
	}

	_, err = j.db.ExecContext(ctx, j.d.insert,
		int64(rc.Seq), rc.From.Hex(), rc.To.Hex(), value, rc.Method, args, string(notes), committedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: insert receipt %d: %w", j.d.name, rc.Seq, err)
	}
	return nil
}

// Load devolve todos os receipts em ordem de sequência, para replay
func (j *SQLJournal) Load(ctx context.Context) ([]chain.Receipt, error) {
	rows, err := j.db.QueryContext(ctx, j.d.selectAll)
	if err != nil {
		return nil, fmt.Errorf("%s: select receipts: %w", j.d.name, err)
	}
	defer rows.Close()

	var out []chain.Receipt
	for rows.Next() {
		var (
			seq               int64
			from, to, value   string
			method            string
			args, notes       string
			committedPostgres time.Time
			committedSQLite   int64
		)
		var committedDst any = &committedPostgres
		if j.d.name == "sqlite" {
			committedDst = &committedSQLite
		}
		if err := rows.Scan(&seq, &from, &to, &value, &method, &args, &notes, committedDst); err != nil {
			return nil, err
		}

		rc := chain.Receipt{
			Seq:    uint64(seq),
			From:   common.HexToAddress(from),
			To:     common.HexToAddress(to),
			Method: method,
		}
		if rc.Value, err = uint256.FromDecimal(value); err != nil {
			return nil, fmt.Errorf("receipt %d value: %w", seq, err)
		}
		if args != "" {
			rc.Args = json.RawMessage(args)
		}
		if notes != "" && notes != "null" {
			var raw []events.Raw
			if err := json.Unmarshal([]byte(notes), &raw); err != nil {
				return nil, fmt.Errorf("receipt %d notifications: %w", seq, err)
			}
			rc.Notifications = rawToNotifications(raw)
		}
		if j.d.name == "sqlite" {
			rc.CommittedAt = time.Unix(0, committedSQLite).UTC()
		} else {
			rc.CommittedAt = committedPostgres.UTC()
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (j *SQLJournal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

func rawToNotifications(raw []events.Raw) []events.Notification {
	out := make([]events.Notification, 0, len(raw))
	for _, r := range raw {
		out = append(out, events.Notification{
			ID:      r.ID,
			Seq:     r.Seq,
			Type:    r.Type,
			EventID: r.EventID,
			Ts:      r.Ts,
			Payload: r.Payload,
		})
	}
	return out
}
