package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/probego/blobstore"
	"github.com/hupe1980/probego/codec"
	"github.com/hupe1980/probego/metadata"
	"github.com/hupe1980/probego/model"
)

// DefaultContact is the contact id used when data is not tied to a
// specific contact.
const DefaultContact = "0"

const (
	metadataBlob = "metadata.json"
	schemaBlob   = "schema.json"
	blockSuffix  = ".blk"
)

// Options configures a Store.
type Options struct {
	// Codec encodes metadata and schema documents. Defaults to codec.Default.
	Codec codec.Codec

	// Compression selects the block compression algorithm.
	// Defaults to CompressionZSTD.
	Compression Compression

	// Logger receives debug/info events. Defaults to a discard logger.
	Logger *slog.Logger

	// ScanWorkers bounds concurrent metadata reads during filter scans.
	// If 0, defaults to 4.
	ScanWorkers int64

	// ScanIOLimitBytesPerSec throttles scan read throughput. If 0, unlimited.
	ScanIOLimitBytesPerSec int64

	// DisableSettingsIndex turns off the in-memory settings index and
	// forces every filter to a full metadata scan.
	DisableSettingsIndex bool

	// Clock overrides the time source, mainly for tests.
	Clock func() time.Time
}

// Option customizes Store construction.
type Option func(*Options)

// WithCodec sets the document codec.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// WithCompression sets the block compression algorithm.
func WithCompression(c Compression) Option {
	return func(o *Options) { o.Compression = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithScanWorkers bounds concurrent metadata reads during filter scans.
func WithScanWorkers(n int64) Option {
	return func(o *Options) { o.ScanWorkers = n }
}

// WithScanIOLimit throttles scan read throughput in bytes per second.
func WithScanIOLimit(bytesPerSec int64) Option {
	return func(o *Options) { o.ScanIOLimitBytesPerSec = bytesPerSec }
}

// WithSettingsIndex enables or disables the in-memory settings index.
func WithSettingsIndex(enabled bool) Option {
	return func(o *Options) { o.DisableSettingsIndex = !enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Clock = now }
}

// Store is an addressable storage engine for measurement datasets.
//
// Datasets are identified by path
// /<measurement>/<fingerprint>/<timestamp>-<sampleID>. Contact data is
// stored as immutable append blocks; metadata is written once at
// InitDataset. A dataset has a single writer; concurrent reads and writes
// to different datasets are safe.
type Store struct {
	blobs  blobstore.Store
	codec  codec.Codec
	comp   Compression
	logger *slog.Logger
	scan   *scanController
	index  *settingsIndex

	mu     sync.Mutex
	lastTS time.Time
	now    func() time.Time
}

// New creates a Store over the given blob backend.
func New(blobs blobstore.Store, opts ...Option) *Store {
	o := Options{
		Codec:       codec.Default,
		Compression: CompressionZSTD,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	s := &Store{
		blobs:  blobs,
		codec:  o.Codec,
		comp:   o.Compression,
		logger: o.Logger,
		scan: newScanController(scanConfig{
			Workers:            o.ScanWorkers,
			IOLimitBytesPerSec: o.ScanIOLimitBytesPerSec,
		}),
		now: o.Clock,
	}
	if !o.DisableSettingsIndex {
		s.index = newSettingsIndex()
	}
	return s
}

// nextTimestamp returns a strictly increasing UTC timestamp.
func (s *Store) nextTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = t
	return t
}

// InitDataset allocates a new dataset for the given metadata and returns
// its path. The path embeds a fresh timestamp, so initializing the same
// metadata again yields a distinct dataset.
func (s *Store) InitDataset(ctx context.Context, md *metadata.Metadata) (string, error) {
	if md == nil {
		return "", fmt.Errorf("%w: nil metadata", metadata.ErrInvalidMetadata)
	}
	if err := validateName("measurement", md.Measurement()); err != nil {
		return "", err
	}
	if md.Measurement() == samplePrefix {
		return "", fmt.Errorf("%w: measurement name %q is reserved", ErrInvalidPath, samplePrefix)
	}
	if err := validateName("sample id", md.SampleID()); err != nil {
		return "", err
	}

	p := DatasetPath{
		Measurement: md.Measurement(),
		Fingerprint: md.Fingerprint(),
		Timestamp:   s.nextTimestamp(),
		SampleID:    md.SampleID(),
	}
	key := p.key()

	if _, err := s.LoadMetadata(ctx, p.String()); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAddressCollision, p)
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	doc, err := s.codec.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("store: encode metadata: %w", err)
	}
	if err := s.blobs.Put(ctx, key+"/"+metadataBlob, doc); err != nil {
		return "", fmt.Errorf("store: write metadata: %w", err)
	}

	link := samplePrefix + "/" + md.SampleID() + "/" + p.Timestamp.Format(TimestampLayout)
	if err := s.blobs.Put(ctx, link, []byte(p.String())); err != nil {
		return "", fmt.Errorf("store: write sample link: %w", err)
	}

	if s.index != nil {
		s.index.add(md.Measurement(), p.String(), md.MeasurementSettings())
	}

	s.logger.DebugContext(ctx, "dataset initialized",
		slog.String("path", p.String()),
		slog.String("sample_id", md.SampleID()),
	)
	return p.String(), nil
}

// SaveData appends the rows of a table to a contact entry as one immutable
// block. The first write for a contact freezes its schema; later appends
// must match it exactly. An empty contact id maps to DefaultContact.
func (s *Store) SaveData(ctx context.Context, path, contact string, t model.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	p, err := ParseDatasetPath(path)
	if err != nil {
		return err
	}
	if contact == "" {
		contact = DefaultContact
	}
	if err := validateName("contact", contact); err != nil {
		return err
	}

	prefix := p.key() + "/" + contact + "/"
	if err := s.ensureSchema(ctx, p, prefix, contact, t.Fields); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	seq, err := s.nextBlockSeq(ctx, prefix)
	if err != nil {
		return err
	}

	block, err := encodeBlock(t.Rows, len(t.Fields), s.comp)
	if err != nil {
		return fmt.Errorf("store: encode block: %w", err)
	}
	name := fmt.Sprintf("%s%08d%s", prefix, seq, blockSuffix)
	if err := s.blobs.Put(ctx, name, block); err != nil {
		return fmt.Errorf("store: write block: %w", err)
	}

	s.logger.DebugContext(ctx, "block appended",
		slog.String("path", path),
		slog.String("contact", contact),
		slog.Int("rows", t.Len()),
	)
	return nil
}

// SaveRecord appends a single record to a contact entry.
func (s *Store) SaveRecord(ctx context.Context, path, contact string, r model.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.SaveData(ctx, path, contact, model.Table{
		Fields: r.Fields,
		Rows:   [][]float64{r.Values},
	})
}

// ensureSchema freezes the contact schema on first write and verifies it
// on every later write.
func (s *Store) ensureSchema(ctx context.Context, p DatasetPath, prefix, contact string, fields model.Schema) error {
	data, err := s.readBlob(ctx, prefix+schemaBlob)
	if err == nil {
		var stored model.Schema
		if err := s.codec.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("store: decode schema: %w", err)
		}
		if !stored.Equal(fields) {
			return &SchemaConflictError{Contact: contact, Got: fields.Clone(), Want: stored}
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	// First write for this contact. The dataset itself must exist.
	if _, err := s.LoadMetadata(ctx, p.String()); err != nil {
		return err
	}

	doc, err := s.codec.Marshal(fields)
	if err != nil {
		return fmt.Errorf("store: encode schema: %w", err)
	}
	if err := s.blobs.Put(ctx, prefix+schemaBlob, doc); err != nil {
		return fmt.Errorf("store: write schema: %w", err)
	}
	return nil
}

// nextBlockSeq returns the next block sequence number for a contact.
func (s *Store) nextBlockSeq(ctx context.Context, prefix string) (int, error) {
	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return 0, translateError(err)
	}

	next := 0
	for _, name := range names {
		base := strings.TrimPrefix(name, prefix)
		if !strings.HasSuffix(base, blockSuffix) {
			continue
		}
		var seq int
		if _, err := fmt.Sscanf(strings.TrimSuffix(base, blockSuffix), "%d", &seq); err != nil {
			continue
		}
		if seq >= next {
			next = seq + 1
		}
	}
	return next, nil
}

// LoadMetadata reads the metadata record of a dataset.
func (s *Store) LoadMetadata(ctx context.Context, path string) (*metadata.Metadata, error) {
	p, err := ParseDatasetPath(path)
	if err != nil {
		return nil, err
	}

	data, err := s.readBlob(ctx, p.key()+"/"+metadataBlob)
	if err != nil {
		return nil, err
	}

	var md metadata.Metadata
	if err := s.codec.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("store: decode metadata: %w", err)
	}
	return &md, nil
}

// LoadData reads contact entries of a dataset as tables. With no explicit
// contacts, all stored contacts are loaded in sorted order.
func (s *Store) LoadData(ctx context.Context, path string, contacts ...string) ([]model.Table, error) {
	p, err := ParseDatasetPath(path)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		contacts, err = s.listContacts(ctx, p)
		if err != nil {
			return nil, err
		}
	}

	tables := make([]model.Table, len(contacts))
	for i, contact := range contacts {
		t, err := s.loadContact(ctx, p, contact)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return tables, nil
}

// LoadDataset reads the metadata and all contact entries of a dataset.
func (s *Store) LoadDataset(ctx context.Context, path string) (map[string]model.Table, *metadata.Metadata, error) {
	md, err := s.LoadMetadata(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	p, _ := ParseDatasetPath(path)
	contacts, err := s.listContacts(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	tables := make(map[string]model.Table, len(contacts))
	for _, contact := range contacts {
		t, err := s.loadContact(ctx, p, contact)
		if err != nil {
			return nil, nil, err
		}
		tables[contact] = t
	}
	return tables, md, nil
}

// DatasetLength returns the number of contact entries in a dataset.
func (s *Store) DatasetLength(ctx context.Context, path string) (int, error) {
	p, err := ParseDatasetPath(path)
	if err != nil {
		return 0, err
	}
	contacts, err := s.listContacts(ctx, p)
	if err != nil {
		return 0, err
	}
	return len(contacts), nil
}

func (s *Store) listContacts(ctx context.Context, p DatasetPath) ([]string, error) {
	prefix := p.key() + "/"
	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, translateError(err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: dataset %s", ErrNotFound, p)
	}

	seen := make(map[string]struct{})
	var contacts []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, prefix)
		contact, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue // metadata.json lives at the dataset root
		}
		if _, dup := seen[contact]; !dup {
			seen[contact] = struct{}{}
			contacts = append(contacts, contact)
		}
	}
	sort.Strings(contacts)
	return contacts, nil
}

func (s *Store) loadContact(ctx context.Context, p DatasetPath, contact string) (model.Table, error) {
	if contact == "" {
		contact = DefaultContact
	}
	prefix := p.key() + "/" + contact + "/"

	data, err := s.readBlob(ctx, prefix+schemaBlob)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Table{}, fmt.Errorf("%w: contact %q in dataset %s", ErrNotFound, contact, p)
		}
		return model.Table{}, err
	}
	var schema model.Schema
	if err := s.codec.Unmarshal(data, &schema); err != nil {
		return model.Table{}, fmt.Errorf("store: decode schema: %w", err)
	}

	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return model.Table{}, translateError(err)
	}
	sort.Strings(names)

	t := model.Table{Fields: schema}
	for _, name := range names {
		if !strings.HasSuffix(name, blockSuffix) {
			continue
		}
		raw, err := s.readBlob(ctx, name)
		if err != nil {
			return model.Table{}, err
		}
		rows, err := decodeBlock(raw)
		if err != nil {
			return model.Table{}, fmt.Errorf("store: block %s: %w", name, err)
		}
		for _, row := range rows {
			if len(row) != len(schema) {
				return model.Table{}, fmt.Errorf("store: block %s: %w", name, model.ErrShapeMismatch)
			}
		}
		t.Rows = append(t.Rows, rows...)
	}
	return t, nil
}

// Measurements lists the measurement namespaces present in the store.
func (s *Store) Measurements(ctx context.Context) ([]string, error) {
	names, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, translateError(err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, name := range names {
		m, _, ok := strings.Cut(name, "/")
		if !ok || m == samplePrefix {
			continue
		}
		if _, dup := seen[m]; !dup {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SampleIDs returns the set of sample ids observed across all datasets.
func (s *Store) SampleIDs(ctx context.Context) ([]string, error) {
	names, err := s.blobs.List(ctx, samplePrefix+"/")
	if err != nil {
		return nil, translateError(err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, samplePrefix+"/")
		id, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// FilterBySampleID returns the dataset paths recorded for a sample, in
// creation order.
func (s *Store) FilterBySampleID(ctx context.Context, sampleID string) ([]string, error) {
	if err := validateName("sample id", sampleID); err != nil {
		return nil, err
	}

	prefix := samplePrefix + "/" + sampleID + "/"
	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, translateError(err)
	}

	// Fixed-width timestamps: sorted names are creation order.
	paths := make([]string, 0, len(names))
	for _, name := range names {
		data, err := s.readBlob(ctx, name)
		if err != nil {
			return nil, err
		}
		paths = append(paths, string(data))
	}
	return paths, nil
}

// FilterBySettings returns the dataset paths under a measurement whose
// stored settings contain the given subset, sorted by path. An empty
// subset matches every dataset of the measurement.
func (s *Store) FilterBySettings(ctx context.Context, measurement string, subset metadata.Settings) ([]string, error) {
	results, err := s.FilterBySettingsBatch(ctx, measurement, []metadata.Settings{subset})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// FilterBySettingsBatch evaluates many subset filters against a
// measurement in a single metadata pass per dataset.
func (s *Store) FilterBySettingsBatch(ctx context.Context, measurement string, subsets []metadata.Settings) ([][]string, error) {
	if err := validateName("measurement", measurement); err != nil {
		return nil, err
	}

	results := make([][]string, len(subsets))

	if s.index != nil {
		if err := s.ensureIndex(ctx, measurement); err != nil {
			return nil, err
		}
		for i, subset := range subsets {
			paths := s.index.lookup(measurement, subset)
			sort.Strings(paths)
			results[i] = paths
		}
		return results, nil
	}

	var mu sync.Mutex
	err := s.scanMetadata(ctx, measurement, func(path string, settings metadata.Settings) {
		mu.Lock()
		defer mu.Unlock()
		for i, subset := range subsets {
			if settings.Contains(subset) {
				results[i] = append(results[i], path)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	for i := range results {
		sort.Strings(results[i])
	}
	return results, nil
}

// SettingValues returns the unique stored setting values per key across
// all datasets of a measurement, for building filter UIs.
func (s *Store) SettingValues(ctx context.Context, measurement string) (map[string][]metadata.Value, error) {
	if err := validateName("measurement", measurement); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	seen := make(map[string]map[string]metadata.Value)

	err := s.scanMetadata(ctx, measurement, func(_ string, settings metadata.Settings) {
		mu.Lock()
		defer mu.Unlock()
		for key, v := range settings {
			vals, ok := seen[key]
			if !ok {
				vals = make(map[string]metadata.Value)
				seen[key] = vals
			}
			vals[v.CanonicalString()] = v
		}
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]metadata.Value, len(seen))
	for key, vals := range seen {
		canon := make([]string, 0, len(vals))
		for c := range vals {
			canon = append(canon, c)
		}
		sort.Strings(canon)
		vs := make([]metadata.Value, len(canon))
		for i, c := range canon {
			vs[i] = vals[c]
		}
		out[key] = vs
	}
	return out, nil
}

// DeleteDataset removes a dataset and its sample link. Completed datasets
// are normally kept forever; this is an administrative escape hatch.
func (s *Store) DeleteDataset(ctx context.Context, path string) error {
	p, err := ParseDatasetPath(path)
	if err != nil {
		return err
	}

	names, err := s.blobs.List(ctx, p.key()+"/")
	if err != nil {
		return translateError(err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: dataset %s", ErrNotFound, p)
	}
	for _, name := range names {
		if err := s.blobs.Delete(ctx, name); err != nil {
			return translateError(err)
		}
	}

	link := samplePrefix + "/" + p.SampleID + "/" + p.Timestamp.UTC().Format(TimestampLayout)
	if err := s.blobs.Delete(ctx, link); err != nil {
		return translateError(err)
	}

	if s.index != nil {
		s.index.invalidate(p.Measurement)
	}

	s.logger.InfoContext(ctx, "dataset deleted", slog.String("path", path))
	return nil
}

// ensureIndex seeds the settings index for a measurement from a full
// metadata scan on first use.
func (s *Store) ensureIndex(ctx context.Context, measurement string) error {
	if s.index.isComplete(measurement) {
		return nil
	}

	err := s.scanMetadata(ctx, measurement, func(path string, settings metadata.Settings) {
		s.index.add(measurement, path, settings)
	})
	if err != nil {
		return err
	}

	s.index.markComplete(measurement)
	return nil
}

// scanMetadata reads the metadata of every dataset under a measurement,
// fanning out over the scan controller. fn may be called concurrently.
func (s *Store) scanMetadata(ctx context.Context, measurement string, fn func(path string, settings metadata.Settings)) error {
	names, err := s.blobs.List(ctx, measurement+"/")
	if err != nil {
		return translateError(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		if !strings.HasSuffix(name, "/"+metadataBlob) {
			continue
		}
		path := "/" + strings.TrimSuffix(name, "/"+metadataBlob)

		if err := s.scan.acquire(gctx); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer s.scan.release()

			md, err := s.LoadMetadata(gctx, path)
			if err != nil {
				return err
			}
			fn(path, md.MeasurementSettings())
			return nil
		})
	}
	return g.Wait()
}

// readBlob reads a whole blob, honoring the scan IO budget.
func (s *Store) readBlob(ctx context.Context, name string) ([]byte, error) {
	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	defer b.Close()

	if err := s.scan.waitIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, translateError(err)
	}
	return data, nil
}
