package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/sqlite"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.StateStore = (*sqlite.Store)(nil)
	_ ports.AnswerSink = (*sqlite.Sink)(nil)
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "data", "stepwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, openDB(t).Store())
}

func TestSQLiteStore_InMemory(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	store := db.Store()
	require.NoError(t, store.Save(ctx, "f", domain.NewFlowState("f", 0)))
	_, err = store.Load(ctx, "f")
	assert.NoError(t, err)
}

func TestSQLiteSink(t *testing.T) {
	db := openDB(t)
	sink := db.Sink("mood-checkin")
	ctx := context.Background()

	answers := domain.AnswerStore{
		"mood":       domain.MoodAnswer(domain.Mood{ID: "calm", Emoji: "😌"}),
		"activities": domain.ChoicesAnswer("rest"),
	}

	require.NoError(t, sink.Submit(ctx, "flow-1", answers))
	require.NoError(t, sink.Submit(ctx, "flow-1", answers), "resubmission is ignored")
	require.NoError(t, db.Sink("other").Submit(ctx, "flow-2", answers))

	subs, err := sink.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "flow-1", subs[0].FlowID)
	assert.Equal(t, "calm", subs[0].Answers["mood"].Mood.ID)
	assert.Equal(t, []string{"rest"}, subs[0].Answers["activities"].Choices)
	assert.False(t, subs[0].SubmittedAt.IsZero())
}

func TestSQLite_EndToEnd(t *testing.T) {
	db := openDB(t)
	def, err := definitions.Load("mood-checkin")
	require.NoError(t, err)

	eng, err := stepwise.Compile(def,
		stepwise.WithStore(db.Store()),
		stepwise.WithSink(db.Sink(def.Name)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	f, err := eng.CreateFlow(ctx, "e2e")
	require.NoError(t, err)
	f.Select(ctx, "tired")

	resumed, err := eng.Resume(ctx, "e2e")
	require.NoError(t, err)
	resumed.StageInput(2)
	resumed.Next(ctx)
	resumed.Toggle("none")
	resumed.Next(ctx)
	res := resumed.Next(ctx)
	require.Equal(t, domain.OutcomeCompleted, res.Outcome)
	require.NoError(t, res.Err)

	ids, err := db.Store().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "submitted flows are removed from the store")

	subs, err := db.Sink(def.Name).Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Len(t, subs[0].Answers, 4)
}
