package audit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "mecsa/internal/core/context"
)

type stubTxManager struct{}

func (stubTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	actions []ActionLog
	data    []DataLog
}

func (r *fakeRepo) InsertAction(_ context.Context, row *ActionLog) error {
	r.actions = append(r.actions, *row)
	return nil
}

func (r *fakeRepo) InsertData(_ context.Context, rows []DataLog) error {
	r.data = append(r.data, rows...)
	return nil
}

func (r *fakeRepo) ListActions(_ context.Context, _ ActionFilter) ([]ActionLog, int64, error) {
	return r.actions, int64(len(r.actions)), nil
}

func (r *fakeRepo) ListDataByAction(_ context.Context, actionID uuid.UUID) ([]DataLog, error) {
	var out []DataLog
	for _, row := range r.data {
		if row.ActionID == actionID {
			out = append(out, row)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{}
	svc, err := NewService(repo, stubTxManager{})
	require.NoError(t, err)
	return svc, repo
}

func tracedContext() context.Context {
	return appctx.WithTrace(context.Background(), appctx.NewTraceContext())
}

func TestRedactJSON(t *testing.T) {
	raw := []byte(`{"username":"alice","password":"secret","nested":{"token":"abc","keep":1},"list":[{"old_password":"x"}]}`)

	var m map[string]any
	require.NoError(t, json.Unmarshal(RedactJSON(raw), &m))

	assert.Equal(t, "alice", m["username"])
	assert.Equal(t, "[REDACTED]", m["password"])
	nested := m["nested"].(map[string]any)
	assert.Equal(t, "[REDACTED]", nested["token"])
	assert.Equal(t, float64(1), nested["keep"])
	item := m["list"].([]any)[0].(map[string]any)
	assert.Equal(t, "[REDACTED]", item["old_password"])
}

func TestRedactJSONPassesThroughNonObjects(t *testing.T) {
	assert.Equal(t, []byte(`[1,2,3]`), RedactJSON([]byte(`[1,2,3]`)))
	assert.Equal(t, []byte("not json"), RedactJSON([]byte("not json")))
	assert.Empty(t, RedactJSON(nil))
}

func TestRecorderNilSafe(t *testing.T) {
	var r *Recorder
	r.Record(Change{})
	assert.Nil(t, r.Drain())
	assert.Nil(t, FromContext(context.Background()))
}

func TestRecorderDrainClears(t *testing.T) {
	ctx, r := WithRecorder(context.Background())
	FromContext(ctx).Created("color", "12", map[string]any{"name": "AZUL"})
	FromContext(ctx).Updated("color", "12", map[string]any{"name": "AZUL"}, map[string]any{"name": "ROJO"})

	changes := r.Drain()
	require.Len(t, changes, 2)
	assert.Equal(t, ActionCreate, changes[0].Action)
	assert.Equal(t, ActionUpdate, changes[1].Action)
	assert.Empty(t, r.Drain())
}

func TestWriteActionFillsCorrelationAndUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := appctx.WithUser(tracedContext(), &appctx.UserContext{UserID: 7, Username: "alice"})

	svc.WriteAction(ctx, &ActionLog{
		Endpoint:    "users.create",
		RequestBody: json.RawMessage(`{"username":"bob","password":"hunter2"}`),
	})

	require.Len(t, repo.actions, 1)
	row := repo.actions[0]
	assert.Equal(t, appctx.GetActionID(ctx), row.ID.String())
	assert.Equal(t, 7, row.UserID)
	assert.Equal(t, "alice", row.Username)
	assert.Equal(t, CompressionNone, row.CompressionAlgo)
	assert.NotContains(t, string(row.RequestBody), "hunter2")
	assert.Contains(t, string(row.RequestBody), "[REDACTED]")
}

func TestWriteActionCompressesLargePayloads(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := tracedContext()

	big, err := json.Marshal(map[string]any{"blob": strings.Repeat("x", 20*1024)})
	require.NoError(t, err)

	svc.WriteAction(ctx, &ActionLog{Endpoint: "yarns.create", ResponseBody: big})
	require.Len(t, repo.actions, 1)
	assert.Equal(t, CompressionZstd, repo.actions[0].CompressionAlgo)
	assert.Less(t, len(repo.actions[0].ResponseBody), len(big))

	// The read side transparently decompresses.
	rows, _, err := svc.ListActions(ctx, ActionFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, CompressionNone, rows[0].CompressionAlgo)
	assert.JSONEq(t, string(big), string(rows[0].ResponseBody))
}

func TestFlushCorrelatesWithAction(t *testing.T) {
	svc, repo := newTestService(t)
	ctx, recorder := WithRecorder(tracedContext())
	actionID := uuid.MustParse(appctx.GetActionID(ctx))

	recorder.Updated("yarn", "1001",
		map[string]any{"count": 20, "password": "should-not-appear"},
		map[string]any{"count": 24})
	recorder.Deleted("yarn_recipe", "1001/5", map[string]any{"proportion": "40"})

	svc.Flush(ctx, recorder)

	require.Len(t, repo.data, 2)
	for _, row := range repo.data {
		assert.Equal(t, actionID, row.ActionID)
	}
	assert.Equal(t, ActionUpdate, repo.data[0].Action)
	assert.NotContains(t, string(repo.data[0].OldValue), "should-not-appear")
	assert.Equal(t, ActionDelete, repo.data[1].Action)
	assert.Nil(t, repo.data[1].NewValue)

	// Drained: a second flush writes nothing.
	svc.Flush(ctx, recorder)
	assert.Len(t, repo.data, 2)
}
