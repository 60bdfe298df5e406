package probego_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/probego"
	"github.com/hupe1980/probego/blobstore"
	"github.com/hupe1980/probego/metadata"
	"github.com/hupe1980/probego/model"
	"github.com/hupe1980/probego/store"
	"github.com/hupe1980/probego/testutil"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(blobstore.NewMemoryStore())
}

func TestRunCompletes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	device := testutil.NewSimDevice()
	array := testutil.NewSimArray(2, 2)
	m := testutil.NewSimMeasurement(-1, 1, 11)

	exp, err := probego.New(st, device, m, array, "sample-42")
	require.NoError(t, err)
	assert.Equal(t, probego.StateCreated, exp.State())

	var streamed []probego.StreamItem
	done := make(chan struct{})
	go func() {
		defer close(done)
		for item := range exp.Stream().C() {
			streamed = append(streamed, item)
		}
	}()

	require.NoError(t, exp.Run(ctx))
	<-done

	assert.Equal(t, probego.StateCompleted, exp.State())
	for id, s := range exp.ContactStates() {
		assert.Equal(t, probego.ContactDone, s, "contact %s", id)
	}

	// Every record went to both storage and the live stream.
	assert.Len(t, streamed, 4*11)

	path := exp.DatasetPath()
	require.NotEmpty(t, path)

	tables, md, err := st.LoadDataset(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "iv-sweep", md.Measurement())
	assert.Equal(t, "sample-42", md.SampleID())
	assert.Equal(t, exp.RunID(), md.Annotations()["run_id"])
	require.Len(t, tables, 4)

	table := tables["0"]
	require.Equal(t, 11, table.Len())
	assert.True(t, table.Fields.Equal(testutil.IVSchema()))

	// Ohmic sample: current is voltage over 1 MOhm.
	volts, ok := table.Column("Voltage")
	require.True(t, ok)
	amps, ok := table.Column("Current")
	require.True(t, ok)
	for i := range volts {
		assert.Equal(t, volts[i]/1e6, amps[i])
	}
	assert.Equal(t, -1.0, volts[0])
	assert.Equal(t, 1.0, volts[10])
}

func TestRunIsSingleShot(t *testing.T) {
	ctx := context.Background()
	exp, err := probego.New(newTestStore(t), testutil.NewSimDevice(),
		testutil.NewSimMeasurement(-1, 1, 3), testutil.NewSimArray(1, 1), "s")
	require.NoError(t, err)

	require.NoError(t, exp.Run(ctx))
	assert.ErrorIs(t, exp.Run(ctx), probego.ErrAlreadyRun)
}

func TestRunConfiguresChannel(t *testing.T) {
	ctx := context.Background()
	device := testutil.NewSimDevice()

	exp, err := probego.New(newTestStore(t), device,
		testutil.NewSimMeasurement(-2, 1, 3), testutil.NewSimArray(1, 1), "s")
	require.NoError(t, err)
	require.NoError(t, exp.Run(ctx))

	// The measurement applied its source range to the channel.
	settings := device.Channel(0).Settings()
	assert.Equal(t, metadata.Float(2.0), settings["source_range"])
}

func TestRunConfigureFailureIsContained(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	device := testutil.NewSimDevice()
	device.Channel(0).FailConfigure = true

	exp, err := probego.New(st, device,
		testutil.NewSimMeasurement(-1, 1, 3), testutil.NewSimArray(1, 2), "s")
	require.NoError(t, err)

	require.NoError(t, exp.Run(ctx))
	assert.Equal(t, probego.StateCompleted, exp.State())

	states := exp.ContactStates()
	for _, id := range []string{"0", "1"} {
		assert.Equal(t, probego.ContactFailed, states[id], "contact %s", id)

		var ce *probego.ContactError
		require.ErrorAs(t, exp.ContactErr(id), &ce)
	}
}

func TestRunContactFailureIsContained(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	m := testutil.NewSimMeasurement(-1, 1, 5)
	m.FailContacts = map[string]error{"3": errors.New("probe lifted")}

	exp, err := probego.New(st, testutil.NewSimDevice(), m, testutil.NewSimArray(2, 4), "s")
	require.NoError(t, err)

	require.NoError(t, exp.Run(ctx))
	assert.Equal(t, probego.StateCompleted, exp.State())

	states := exp.ContactStates()
	assert.Equal(t, probego.ContactFailed, states["3"])
	for _, id := range []string{"0", "1", "2", "4", "5", "6", "7"} {
		assert.Equal(t, probego.ContactDone, states[id], "contact %s", id)
	}

	var ce *probego.ContactError
	require.ErrorAs(t, exp.ContactErr("3"), &ce)
	assert.Equal(t, "3", ce.Contact)
	assert.Nil(t, exp.ContactErr("0"))

	// Seven of eight contact entries were stored.
	n, err := st.DatasetLength(ctx, exp.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestRunSelectFailureSkips(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	array := testutil.NewSimArray(2, 2)
	array.FailSelect = map[string]error{"1": errors.New("stuck relay")}

	exp, err := probego.New(st, testutil.NewSimDevice(),
		testutil.NewSimMeasurement(-1, 1, 3), array, "s")
	require.NoError(t, err)

	require.NoError(t, exp.Run(ctx))
	assert.Equal(t, probego.StateCompleted, exp.State())
	assert.Equal(t, probego.ContactSkipped, exp.ContactStates()["1"])

	n, err := st.DatasetLength(ctx, exp.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunDeviceFaultEscalates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	m := testutil.NewSimMeasurement(-1, 1, 5)
	m.FaultContact = "2"

	exp, err := probego.New(st, testutil.NewSimDevice(), m, testutil.NewSimArray(2, 4), "s")
	require.NoError(t, err)

	err = exp.Run(ctx)
	var df *probego.DeviceFaultError
	require.ErrorAs(t, err, &df)

	assert.Equal(t, probego.StateFailed, exp.State())

	states := exp.ContactStates()
	assert.Equal(t, probego.ContactDone, states["0"])
	assert.Equal(t, probego.ContactDone, states["1"])
	assert.Equal(t, probego.ContactFailed, states["2"])
	for _, id := range []string{"3", "4", "5", "6", "7"} {
		assert.Equal(t, probego.ContactSkipped, states[id], "contact %s", id)
	}

	// Completed contacts stay stored, no rollback.
	n, err := st.DatasetLength(ctx, exp.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// abortingMeasurement calls Abort when a given contact starts measuring.
type abortingMeasurement struct {
	*testutil.SimMeasurement
	exp *probego.Experiment
	at  string
}

func (m *abortingMeasurement) Run(ctx context.Context, device probego.Device, contact string) iter.Seq2[model.Record, error] {
	if contact == m.at {
		m.exp.Abort()
	}
	return m.SimMeasurement.Run(ctx, device, contact)
}

func TestAbortStopsAtRecordBoundary(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	m := &abortingMeasurement{SimMeasurement: testutil.NewSimMeasurement(-1, 1, 5), at: "3"}

	exp, err := probego.New(st, testutil.NewSimDevice(), m, testutil.NewSimArray(2, 4), "s")
	require.NoError(t, err)
	m.exp = exp

	require.NoError(t, exp.Run(ctx))
	assert.Equal(t, probego.StateAborted, exp.State())

	states := exp.ContactStates()
	for _, id := range []string{"0", "1", "2"} {
		assert.Equal(t, probego.ContactDone, states[id], "contact %s", id)
	}
	// The in-flight contact keeps what it measured and ends in a
	// terminal state, never pending.
	assert.Equal(t, probego.ContactDone, states["3"])
	for _, id := range []string{"4", "5", "6", "7"} {
		assert.Equal(t, probego.ContactSkipped, states[id], "contact %s", id)
	}

	// Contact 3 stopped after its first record.
	tables, err := st.LoadData(ctx, exp.DatasetPath(), "3")
	require.NoError(t, err)
	assert.Equal(t, 1, tables[0].Len())
}

func TestCompatibilityRejectedBeforeStorage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := probego.New(st, sourceOnlyDevice{},
		testutil.NewSimMeasurement(-1, 1, 3), testutil.NewSimArray(2, 2), "s")

	var ce *probego.CompatibilityError
	require.ErrorAs(t, err, &ce)

	// Nothing was allocated in the store.
	ms, err := st.Measurements(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestPreviewPersistsNothing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	exp, err := probego.New(st, testutil.NewSimDevice(),
		testutil.NewSimMeasurement(-1, 1, 5), testutil.NewSimArray(2, 2), "s")
	require.NoError(t, err)

	require.NoError(t, exp.Preview(ctx, "2"))
	assert.Equal(t, probego.StateCreated, exp.State())

	// Live records arrived, storage stayed empty.
	assert.Len(t, exp.Stream().C(), 5)
	ms, err := st.Measurements(ctx)
	require.NoError(t, err)
	assert.Empty(t, ms)

	err = exp.Preview(ctx, "nope")
	var ce *probego.CompatibilityError
	assert.ErrorAs(t, err, &ce)

	// A preview does not consume the single run.
	require.NoError(t, exp.Run(ctx))
	assert.Equal(t, probego.StateCompleted, exp.State())
}

func TestQuickstart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	metrics := &probego.BasicMetricsCollector{}

	exp, err := probego.Quickstart(ctx, st, testutil.NewSimDevice(),
		testutil.NewSimMeasurement(0, 1, 3), testutil.NewSimArray(1, 2), "s",
		probego.WithContacts("1"),
		probego.WithMetricsCollector(metrics),
		probego.WithAnnotations(map[string]string{"creator": "lab"}),
	)
	require.NoError(t, err)
	assert.Equal(t, probego.StateCompleted, exp.State())

	states := exp.ContactStates()
	require.Len(t, states, 1)
	assert.Equal(t, probego.ContactDone, states["1"])

	md, err := st.LoadMetadata(ctx, exp.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, "lab", md.Annotations()["creator"])

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.RunCount)
	assert.Equal(t, int64(1), stats.ContactCount)
	assert.Equal(t, int64(3), stats.AppendCount)
	assert.Equal(t, int64(0), stats.RunFailed)
}
