package ad2cp

// Record is one entry of the index: where a record's payload starts in the
// stream, how long it is, and what kind of record it is.
type Record struct {
	Offset uint64
	Length uint32
	ID     byte
}

// IndexTable holds the scan output as three parallel columns aligned by
// record number. Columns grow together so they can never fall out of step.
type IndexTable struct {
	offsets []uint64
	lengths []uint32
	ids     []byte
	n       int
}

const indexInitialCap = 1024

// append adds one record, growing all three columns when full. Capacity
// multiplies by 1.4 per growth step, trading some reallocation churn for
// bounded overshoot on captures holding millions of ensembles.
func (t *IndexTable) append(offset uint64, length uint32, id byte) {
	if t.n == len(t.offsets) {
		newCap := len(t.offsets) * 7 / 5
		if newCap < indexInitialCap {
			newCap = indexInitialCap
		}
		offsets := make([]uint64, newCap)
		lengths := make([]uint32, newCap)
		ids := make([]byte, newCap)
		copy(offsets, t.offsets)
		copy(lengths, t.lengths)
		copy(ids, t.ids)
		t.offsets, t.lengths, t.ids = offsets, lengths, ids
	}
	t.offsets[t.n] = offset
	t.lengths[t.n] = length
	t.ids[t.n] = id
	t.n++
}

// truncate drops entries beyond n completed records. Used to discard a
// record whose payload the stream could not deliver in full.
func (t *IndexTable) truncate(n int) {
	if n < t.n {
		t.n = n
	}
}

// Len returns the number of indexed records.
func (t *IndexTable) Len() int {
	return t.n
}

// Record returns entry i in stream order.
func (t *IndexTable) Record(i int) Record {
	return Record{Offset: t.offsets[i], Length: t.lengths[i], ID: t.ids[i]}
}

// Offsets returns the payload byte offsets, trimmed to the record count.
// The returned slice aliases the table and must not be modified.
func (t *IndexTable) Offsets() []uint64 {
	return t.offsets[:t.n]
}

// Lengths returns the payload lengths, trimmed to the record count.
func (t *IndexTable) Lengths() []uint32 {
	return t.lengths[:t.n]
}

// IDs returns the record ids, trimmed to the record count.
func (t *IndexTable) IDs() []byte {
	return t.ids[:t.n]
}

// Slice returns a new table holding every step-th record starting at the
// 0-based record start. It implements the from/by subsampling convention
// of the host wrapper; step < 1 is treated as 1.
func (t *IndexTable) Slice(start, step int) *IndexTable {
	if start < 0 {
		start = 0
	}
	if step < 1 {
		step = 1
	}
	out := &IndexTable{}
	for i := start; i < t.n; i += step {
		out.append(t.offsets[i], t.lengths[i], t.ids[i])
	}
	return out
}
