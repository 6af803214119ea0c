package table

import (
	"sort"
	"sync"
)

// Record is one extracted row: an ordered set of named raw values. An
// empty value is null but still establishes its column.
type Record struct {
	names  []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set stores a value. A field keeps the position of its first Set.
func (r *Record) Set(name, value string) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// SetNull declares a field without a value.
func (r *Record) SetNull(name string) {
	r.Set(name, "")
}

// Get returns the value of a field and whether the field exists.
func (r *Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.names) }

// Aggregator collects records into a table whose schema grows as new fields
// appear. It is safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	key     string
	records []*Record
}

// NewAggregator returns an aggregator that orders rows by key and places
// the key column first.
func NewAggregator(key string) *Aggregator {
	return &Aggregator{key: key}
}

// Add appends a record.
func (a *Aggregator) Add(r *Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r)
}

// Len returns the number of records added.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Table materializes the collected records. Rows are sorted by key so the
// output does not depend on the order in which records arrived; columns
// appear in order of first use over the sorted rows. Rows that predate a
// column are null in it.
func (a *Aggregator) Table() *Table {
	a.mu.Lock()
	records := make([]*Record, len(a.records))
	copy(records, a.records)
	a.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		ki, _ := records[i].Get(a.key)
		kj, _ := records[j].Get(a.key)
		return ki < kj
	})
	return FromRecords(a.key, records)
}

// FromRecords builds a text table from records in the given order. Columns
// appear in order of first use; a non-empty key is placed first when any
// record carries it.
func FromRecords(key string, records []*Record) *Table {
	var names []string
	seen := map[string]bool{}
	if key != "" {
		for _, r := range records {
			if _, ok := r.Get(key); ok {
				names = append(names, key)
				seen[key] = true
				break
			}
		}
	}
	for _, r := range records {
		for _, name := range r.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		text := make([]string, len(records))
		for j, r := range records {
			text[j] = r.values[name]
		}
		cols[i] = Column{name: name, kind: KindString, text: text}
	}
	out := MustNew(cols...)
	out.rows = len(records)
	return out
}
