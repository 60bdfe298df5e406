package store

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/probego/metadata"
)

// settingsIndex is an in-memory inverted index from key=value postings to
// dataset ordinals, one sub-index per measurement namespace. It is built
// lazily from a full metadata scan on the first filter and kept current by
// InitDataset afterwards.
type settingsIndex struct {
	mu            sync.Mutex
	byMeasurement map[string]*measurementIndex
}

type measurementIndex struct {
	complete bool // true once seeded from a full scan

	paths    []string          // ordinal -> dataset path, creation order
	ordinals map[string]uint32 // dataset path -> ordinal
	postings map[string]*roaring.Bitmap
}

func newSettingsIndex() *settingsIndex {
	return &settingsIndex{byMeasurement: make(map[string]*measurementIndex)}
}

func postingKey(key string, v metadata.Value) string {
	return key + "\x00" + v.CanonicalString()
}

func (idx *settingsIndex) measurement(name string) *measurementIndex {
	mi, ok := idx.byMeasurement[name]
	if !ok {
		mi = &measurementIndex{
			ordinals: make(map[string]uint32),
			postings: make(map[string]*roaring.Bitmap),
		}
		idx.byMeasurement[name] = mi
	}
	return mi
}

// add records a dataset's settings. Safe to call for already-indexed paths.
func (idx *settingsIndex) add(measurement, path string, settings metadata.Settings) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.measurement(measurement).add(path, settings)
}

func (mi *measurementIndex) add(path string, settings metadata.Settings) {
	if _, ok := mi.ordinals[path]; ok {
		return
	}
	ord := uint32(len(mi.paths))
	mi.paths = append(mi.paths, path)
	mi.ordinals[path] = ord

	for key, v := range settings {
		pk := postingKey(key, v)
		bm, ok := mi.postings[pk]
		if !ok {
			bm = roaring.New()
			mi.postings[pk] = bm
		}
		bm.Add(ord)
	}
}

// complete reports whether the measurement sub-index covers every stored
// dataset and can answer lookups authoritatively.
func (idx *settingsIndex) isComplete(measurement string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	mi, ok := idx.byMeasurement[measurement]
	return ok && mi.complete
}

// markComplete flags a measurement sub-index as fully seeded.
func (idx *settingsIndex) markComplete(measurement string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.measurement(measurement).complete = true
}

// invalidate drops a measurement sub-index so the next filter rebuilds it.
func (idx *settingsIndex) invalidate(measurement string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byMeasurement, measurement)
}

// lookup returns dataset paths whose settings are a superset of subset,
// in creation order. An empty subset matches every dataset.
func (idx *settingsIndex) lookup(measurement string, subset metadata.Settings) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	mi, ok := idx.byMeasurement[measurement]
	if !ok {
		return nil
	}

	if len(subset) == 0 {
		return append([]string(nil), mi.paths...)
	}

	var acc *roaring.Bitmap
	for key, v := range subset {
		bm, ok := mi.postings[postingKey(key, v)]
		if !ok {
			return nil
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
		if acc.IsEmpty() {
			return nil
		}
	}

	out := make([]string, 0, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		out = append(out, mi.paths[it.Next()])
	}
	return out
}
