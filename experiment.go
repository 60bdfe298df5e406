package probego

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/probego/metadata"
	"github.com/hupe1980/probego/store"
)

// Experiment orchestrates one measurement run: it walks the selected
// contacts of a contact array, executes the measurement on each, and
// appends every record to an addressable dataset.
//
// Experiments are single-shot: construct with New, execute with Run.
type Experiment struct {
	store       *store.Store
	device      Device
	measurement Measurement
	array       ContactArray
	sampleID    string
	contacts    []string

	runID       string
	annotations map[string]string
	logger      *Logger
	metrics     MetricsCollector
	stream      *Stream

	abortRequested atomic.Bool

	mu            sync.Mutex
	state         RunState
	contactStates map[string]ContactState
	contactErrs   map[string]error
	datasetPath   string
}

// New creates an experiment. The compatibility of device, measurement and
// array is verified here, before any storage allocation.
func New(st *store.Store, device Device, m Measurement, array ContactArray, sampleID string, optFns ...Option) (*Experiment, error) {
	if st == nil {
		return nil, errors.New("probego: nil store")
	}
	if device == nil || m == nil || array == nil {
		return nil, errors.New("probego: device, measurement and array are required")
	}
	if sampleID == "" {
		return nil, errors.New("probego: sample id is required")
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	contacts := o.contacts
	if len(contacts) == 0 {
		contacts = array.ContactIDs()
	}

	if err := CheckCompatibility(device, m, array, contacts); err != nil {
		return nil, err
	}

	states := make(map[string]ContactState, len(contacts))
	for _, id := range contacts {
		states[id] = ContactPending
	}

	return &Experiment{
		store:         st,
		device:        device,
		measurement:   m,
		array:         array,
		sampleID:      sampleID,
		contacts:      slices.Clone(contacts),
		runID:         o.runID,
		annotations:   o.annotations,
		logger:        o.logger.WithRunID(o.runID).WithSample(sampleID),
		metrics:       o.metricsCollector,
		stream:        newStream(o.streamBuffer),
		state:         StateCreated,
		contactStates: states,
		contactErrs:   make(map[string]error),
	}, nil
}

// Quickstart creates an experiment and runs it to completion.
func Quickstart(ctx context.Context, st *store.Store, device Device, m Measurement, array ContactArray, sampleID string, optFns ...Option) (*Experiment, error) {
	e, err := New(st, device, m, array, sampleID, optFns...)
	if err != nil {
		return nil, err
	}
	return e, e.Run(ctx)
}

// Run executes the experiment. Per-contact failures are contained: the
// contact is marked failed and the run continues. A device fault or a
// storage failure stops the run with state failed. Abort and context
// cancellation stop it with state aborted; data stored so far is kept.
func (e *Experiment) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateCreated {
		e.mu.Unlock()
		return ErrAlreadyRun
	}
	e.state = StateRunning
	e.mu.Unlock()

	start := time.Now()
	defer e.stream.close()

	md, err := e.buildMetadata()
	if err != nil {
		e.skipFrom(0)
		return e.finish(ctx, StateFailed, start, err)
	}

	path, err := e.store.InitDataset(ctx, md)
	if err != nil {
		e.skipFrom(0)
		return e.finish(ctx, StateFailed, start, fmt.Errorf("init dataset: %w", err))
	}

	e.mu.Lock()
	e.datasetPath = path
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "run started",
		"path", path,
		"measurement", e.measurement.Name(),
		"contacts", len(e.contacts),
	)

	for i, id := range e.contacts {
		if cerr := ctx.Err(); cerr != nil {
			e.skipFrom(i)
			return e.finish(ctx, StateAborted, start, cerr)
		}
		if e.abortRequested.Load() {
			e.skipFrom(i)
			return e.finish(ctx, StateAborted, start, nil)
		}

		e.setContactState(id, ContactContacting)
		selStart := time.Now()
		selErr := e.array.SelectContact(ctx, id)
		e.metrics.RecordSelect(time.Since(selStart), selErr)
		e.logger.LogSelect(ctx, id, selErr)
		if selErr != nil {
			e.failContact(id, ContactSkipped, NewContactError(id, selErr))
			continue
		}

		e.setContactState(id, ContactMeasuring)
		cStart := time.Now()
		records, fatal, cErr := e.measureContact(ctx, path, id)
		e.metrics.RecordContact(records, time.Since(cStart), cErr)
		e.logger.LogContact(ctx, id, records, cErr)

		switch {
		case fatal:
			e.failContact(id, ContactFailed, cErr)
			e.skipFrom(i + 1)
			return e.finish(ctx, StateFailed, start, cErr)
		case cErr != nil:
			e.failContact(id, ContactFailed, NewContactError(id, cErr))
		default:
			e.setContactState(id, ContactDone)
		}
	}

	return e.finish(ctx, StateCompleted, start, nil)
}

// measureContact drains the measurement iterator for one contact,
// persisting and streaming every record. Abort is observed at record
// boundaries: the in-flight contact keeps what it measured and ends done.
func (e *Experiment) measureContact(ctx context.Context, path, id string) (records int, fatal bool, err error) {
	for rec, runErr := range e.measurement.Run(ctx, e.device, id) {
		if runErr != nil {
			return records, isFatal(runErr), runErr
		}

		aStart := time.Now()
		saveErr := e.store.SaveRecord(ctx, path, id, rec)
		e.metrics.RecordAppend(time.Since(aStart), saveErr)
		if saveErr != nil {
			return records, true, fmt.Errorf("append record: %w", saveErr)
		}
		records++

		e.stream.publish(StreamItem{Contact: id, Record: rec})

		if e.abortRequested.Load() || ctx.Err() != nil {
			break
		}
	}
	return records, false, nil
}

// Abort requests a stop at the next record boundary. Idempotent and safe
// from any goroutine.
func (e *Experiment) Abort() {
	e.abortRequested.Store(true)
}

// Preview measures a single contact and publishes the records on the live
// stream without persisting anything.
func (e *Experiment) Preview(ctx context.Context, contact string) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return ErrBusy
	}
	e.mu.Unlock()

	if !slices.Contains(e.array.ContactIDs(), contact) {
		return &CompatibilityError{Reason: fmt.Sprintf(
			"contact %q is not part of interface %q", contact, e.array.Name(),
		)}
	}

	if err := e.array.SelectContact(ctx, contact); err != nil {
		return NewContactError(contact, err)
	}

	records := 0
	for rec, err := range e.measurement.Run(ctx, e.device, contact) {
		if err != nil {
			e.logger.LogPreview(ctx, contact, records, err)
			return NewContactError(contact, err)
		}
		e.stream.publish(StreamItem{Contact: contact, Record: rec})
		records++
	}

	e.logger.LogPreview(ctx, contact, records, nil)
	return nil
}

// Stream returns the live record stream. Its channel is closed when Run
// ends.
func (e *Experiment) Stream() *Stream {
	return e.stream
}

// RunID returns the unique identifier of this experiment run.
func (e *Experiment) RunID() string {
	return e.runID
}

// State returns the current lifecycle state.
func (e *Experiment) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// DatasetPath returns the dataset path allocated by Run, or "" before.
func (e *Experiment) DatasetPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.datasetPath
}

// ContactStates returns a snapshot of the per-contact progress states.
func (e *Experiment) ContactStates() map[string]ContactState {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]ContactState, len(e.contactStates))
	for id, s := range e.contactStates {
		out[id] = s
	}
	return out
}

// ContactErr returns the error recorded for a contact, or nil.
func (e *Experiment) ContactErr(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contactErrs[id]
}

func (e *Experiment) setContactState(id string, s ContactState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contactStates[id] = s
}

func (e *Experiment) failContact(id string, s ContactState, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contactStates[id] = s
	e.contactErrs[id] = err
}

// skipFrom marks every still-pending contact from index i on as skipped.
func (e *Experiment) skipFrom(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.contacts[i:] {
		if e.contactStates[id] == ContactPending {
			e.contactStates[id] = ContactSkipped
		}
	}
}

func (e *Experiment) finish(ctx context.Context, state RunState, start time.Time, err error) error {
	e.mu.Lock()
	e.state = state
	measured, failed := 0, 0
	for _, s := range e.contactStates {
		switch s {
		case ContactDone:
			measured++
		case ContactFailed:
			failed++
		}
	}
	e.mu.Unlock()

	e.metrics.RecordRun(len(e.contacts), failed, time.Since(start))
	e.logger.LogRunEnd(ctx, state, measured, failed, err)
	return err
}

// buildMetadata assembles the immutable dataset metadata from the live
// device, measurement and interface configuration.
func (e *Experiment) buildMetadata() (*metadata.Metadata, error) {
	channels := e.device.Channels()
	names := make([]string, len(channels))
	settings := make([]metadata.Settings, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name()
		settings[i] = ch.Settings()
	}

	ids := e.array.ContactIDs()
	positions := make([]metadata.Position, len(ids))
	shapes := make([]metadata.Shape, len(ids))
	for i, id := range ids {
		pos, ok := e.array.Position(id)
		if !ok {
			return nil, fmt.Errorf("%w: interface %q has no position for contact %q", metadata.ErrInvalidMetadata, e.array.Name(), id)
		}
		positions[i] = pos

		shape, ok := e.array.Shape(id)
		if !ok {
			return nil, fmt.Errorf("%w: interface %q has no shape for contact %q", metadata.ErrInvalidMetadata, e.array.Name(), id)
		}
		shapes[i] = shape
	}

	annotations := make(map[string]string, len(e.annotations)+1)
	for k, v := range e.annotations {
		annotations[k] = v
	}
	annotations["run_id"] = e.runID

	return metadata.New(metadata.Config{
		Measurement:         e.measurement.Name(),
		MeasurementSettings: e.measurement.Settings(),
		SampleID:            e.sampleID,
		Device:              e.device.Name(),
		Channels:            names,
		ChannelSettings:     settings,
		Interface:           e.array.Name(),
		SampleShape:         e.array.SampleShape(),
		ContactIDs:          ids,
		ContactPositions:    positions,
		ContactShapes:       shapes,
		Annotations:         annotations,
	})
}
