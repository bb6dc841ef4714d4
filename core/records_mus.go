package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persistent record types. Field order is part of
// the storage format and must not change between releases.
var (
	IDMUS           = idMUS{}
	SparseVectorMUS = sparseVectorMUS{}
	DocumentMUS     = documentMUS{}
	ChunkMUS        = chunkMUS{}

	denseSer  = ord.NewSliceSer[float32](raw.Float32)
	sparseSer = ord.NewMapSer[uint32, float32](varint.Uint32, raw.Float32)
	timeSer   = timeMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (s idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (s idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (s idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// timeMUS persists instants as Unix microseconds. Sub-microsecond
// precision and the original location are dropped; values come back UTC.
type timeMUS struct{}

func (s timeMUS) Marshal(v time.Time, bs []byte) int {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

func (s timeMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

type sparseVectorMUS struct{}

func (s sparseVectorMUS) Marshal(v SparseVector, bs []byte) int {
	return sparseSer.Marshal(map[uint32]float32(v), bs)
}

func (s sparseVectorMUS) Unmarshal(bs []byte) (SparseVector, int, error) {
	m, n, err := sparseSer.Unmarshal(bs)
	return SparseVector(m), n, err
}

func (s sparseVectorMUS) Size(v SparseVector) int {
	return sparseSer.Size(map[uint32]float32(v))
}

func (s sparseVectorMUS) Skip(bs []byte) (int, error) {
	return sparseSer.Skip(bs)
}

type documentMUS struct{}

func (s documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Source, bs[n:])
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Text, bs[n:])
	n += timeSer.Marshal(d.IngestedAt, bs[n:])
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	d.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.IngestedAt, n1, err = timeSer.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(d Document) (size int) {
	size = IDMUS.Size(d.Id)
	size += ord.String.Size(d.Source)
	size += ord.String.Size(d.Title)
	size += ord.String.Size(d.Text)
	size += timeSer.Size(d.IngestedAt)
	return size
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = timeSer.Skip(bs[n:])
	n += n1
	return
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentId, bs[n:])
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += denseSer.Marshal(c.Dense, bs[n:])
	n += SparseVectorMUS.Marshal(c.Sparse, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	c.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Dense, n1, err = denseSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Sparse, n1, err = SparseVectorMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += IDMUS.Size(c.DocumentId)
	size += varint.Int.Size(c.Ordinal)
	size += ord.String.Size(c.Text)
	size += denseSer.Size(c.Dense)
	size += SparseVectorMUS.Size(c.Sparse)
	return size
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = denseSer.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = SparseVectorMUS.Skip(bs[n:])
	n += n1
	return
}
