package vedirect

import "strings"

// Field is one name/value pair of a TEXT frame.
type Field struct {
	Name  string
	Value string
}

// record is a field held in fixed storage so that decoding never allocates.
type record struct {
	name      [NameLen]byte
	nlen      int
	value     [ValueLen]byte
	vlen      int
	truncated bool
}

func (r *record) reset() {
	r.nlen = 0
	r.vlen = 0
	r.truncated = false
}

// appendName adds b to the name, dropping it once the name is full.
func (r *record) appendName(b byte) {
	if r.nlen >= len(r.name) {
		r.truncated = true
		return
	}
	r.name[r.nlen] = b
	r.nlen++
}

// appendValue adds b to the value, dropping it once the value is full.
func (r *record) appendValue(b byte) {
	if r.vlen >= len(r.value) {
		r.truncated = true
		return
	}
	r.value[r.vlen] = b
	r.vlen++
}

func (r *record) nameIs(s string) bool {
	return !r.truncated && string(r.name[:r.nlen]) == s
}

func (r *record) sameName(o *record) bool {
	return string(r.name[:r.nlen]) == string(o.name[:o.nlen])
}

func (r *record) Name() string {
	return string(r.name[:r.nlen])
}

func (r *record) field() Field {
	return Field{Name: string(r.name[:r.nlen]), Value: string(r.value[:r.vlen])}
}

// table holds the latest value of every name seen, in first-seen order.
type table struct {
	entries [TableLen]record
	n       int
}

// merge stores r, overwriting the value of an existing name in place. It
// returns false if r is a new name and the table is full.
func (t *table) merge(r *record) bool {
	for i := 0; i < t.n; i++ {
		e := &t.entries[i]
		if e.sameName(r) {
			e.value = r.value
			e.vlen = r.vlen
			return true
		}
	}
	if t.n >= len(t.entries) {
		return false
	}
	t.entries[t.n] = *r
	t.entries[t.n].truncated = false
	t.n++
	return true
}

func (t *table) lookup(name string) (string, bool) {
	for i := 0; i < t.n; i++ {
		if t.entries[i].Name() == name {
			return string(t.entries[i].value[:t.entries[i].vlen]), true
		}
	}
	return "", false
}

// HasNewData reports whether a TEXT frame has been accepted since the last
// call to Clear.
func (d *Decoder) HasNewData() bool {
	return d.newData
}

// Clear resets the new-data flag. The table keeps its contents.
func (d *Decoder) Clear() {
	d.newData = false
}

// Read returns a copy of the published table in first-seen order.
func (d *Decoder) Read() []Field {
	fields := make([]Field, d.table.n)
	for i := 0; i < d.table.n; i++ {
		fields[i] = d.table.entries[i].field()
	}
	return fields
}

// Value returns the latest value published for name. The lookup is case
// insensitive, as names are stored upper case.
func (d *Decoder) Value(name string) (string, bool) {
	return d.table.lookup(strings.ToUpper(name))
}
