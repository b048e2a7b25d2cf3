package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sarchlab/selftime/datarecording"
)

// SessionTableName is the table that lists the recorded sessions.
const SessionTableName = "sessions"

// SessionEntry is the record of one tracking session.
type SessionEntry struct {
	ID         string
	Plan       string
	Start      string
	Operations int
}

// OperationEntry is the record of one completed operation. Seq is the order
// in which the operation first began. Times are in nanoseconds; StartNS is
// relative to the first operation of the session.
type OperationEntry struct {
	Seq       int
	ID        string
	ParentID  string
	Depth     int
	StartNS   int64
	ElapsedNS int64
	SelfNS    int64
}

// OperationTableName returns the table that holds the operations of a
// session.
func OperationTableName(sessionID string) string {
	return "ops_" + sessionID
}

// DBTracer is a tracer that stores completed operations into a database.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	sessionID string
	tableName string
	origin    time.Time
	started   bool
	seqs      map[string]int
	count     int
}

// NewDBTracer creates a DBTracer that records one session. The backend must
// not hold a session table yet.
func NewDBTracer(
	backend datarecording.DataRecorder,
	sessionID string,
) *DBTracer {
	t := &DBTracer{
		backend:   backend,
		sessionID: sessionID,
		tableName: OperationTableName(sessionID),
		seqs:      make(map[string]int),
	}

	backend.CreateTable(SessionTableName, SessionEntry{})
	backend.CreateTable(t.tableName, OperationEntry{})

	return t
}

// StartOperation remembers when the session started and in which order the
// operations begin.
func (t *DBTracer) StartOperation(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		t.origin = op.StartTime
		t.started = true
	}

	if _, seen := t.seqs[op.ID]; !seen {
		t.seqs[op.ID] = len(t.seqs)
	}
}

// EndOperation writes the operation.
func (t *DBTracer) EndOperation(op Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.InsertData(t.tableName, OperationEntry{
		Seq:       t.seqs[op.ID],
		ID:        op.ID,
		ParentID:  op.ParentID,
		Depth:     op.Depth,
		StartNS:   op.StartTime.Sub(t.origin).Nanoseconds(),
		ElapsedNS: op.Elapsed.Nanoseconds(),
		SelfNS:    op.SelfTime.Nanoseconds(),
	})
	t.count++
}

// Terminate writes the session entry and flushes the backend.
func (t *DBTracer) Terminate(plan string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.InsertData(SessionTableName, SessionEntry{
		ID:         t.sessionID,
		Plan:       plan,
		Start:      t.origin.Format(time.RFC3339Nano),
		Operations: t.count,
	})

	return errors.Wrap(t.backend.Flush(), "flushing session")
}

// ReadSessions lists the sessions recorded in a database.
func ReadSessions(
	ctx context.Context,
	reader *datarecording.SQLiteReader,
) ([]SessionEntry, error) {
	reader.MapTable(SessionTableName, SessionEntry{})

	rows, err := reader.Query(ctx, SessionTableName,
		datarecording.QueryParams{OrderBy: "Start"})
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionEntry, len(rows))
	for i, r := range rows {
		sessions[i] = *r.(*SessionEntry)
	}

	return sessions, nil
}

// ReadOperations loads the operations of a recorded session in the order they
// first began.
func ReadOperations(
	ctx context.Context,
	reader *datarecording.SQLiteReader,
	sessionID string,
) ([]OperationEntry, error) {
	tableName := OperationTableName(sessionID)
	reader.MapTable(tableName, OperationEntry{})

	rows, err := reader.Query(ctx, tableName,
		datarecording.QueryParams{OrderBy: "Seq"})
	if err != nil {
		return nil, err
	}

	ops := make([]OperationEntry, len(rows))
	for i, r := range rows {
		ops[i] = *r.(*OperationEntry)
	}

	return ops, nil
}
