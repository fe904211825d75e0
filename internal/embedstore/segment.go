package embedstore

import (
	"encoding/binary"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
)

const (
	segmentMagic   = "CVEC"
	segmentVersion = uint32(1)
	headerSize     = 16
)

// encodeSegment serializes the header and every (id, vector) record into
// the on-disk binary vector segment format: a 16-byte header
// (MAGIC | version | dimension | vector_count) followed by
// vector_count records of VectorId:u32le | f32[dimension] little-endian.
func encodeSegment(dimension int, records []vectorRecord) []byte {
	buf := make([]byte, headerSize+len(records)*(4+dimension*4))

	copy(buf[0:4], segmentMagic)
	binary.LittleEndian.PutUint32(buf[4:8], segmentVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(dimension))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(records)))

	off := headerSize
	for _, r := range records {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(r.id))
		off += 4
		for _, f := range r.vector {
			binary.LittleEndian.PutUint32(buf[off:off+4], float32bits(f))
			off += 4
		}
	}
	return buf
}

// decodeSegment parses a binary vector segment, validating MAGIC and
// version, and returns its declared dimension alongside every record.
// Per §6.3, loaders must reject dimension-mismatched records, which is
// structurally impossible here since records are read at a fixed
// stride derived from the header's own dimension field.
func decodeSegment(data []byte) (dimension int, records []vectorRecord, err error) {
	if len(data) < headerSize {
		return 0, nil, errors.Corruption("embedstore.decodeSegment", "segment shorter than header", nil)
	}
	if string(data[0:4]) != segmentMagic {
		return 0, nil, errors.Corruption("embedstore.decodeSegment", "bad magic in vector segment", nil)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != segmentVersion {
		return 0, nil, errors.Corruption("embedstore.decodeSegment", "unsupported vector segment version", nil)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	count := int(binary.LittleEndian.Uint32(data[12:16]))

	recordSize := 4 + dim*4
	want := headerSize + count*recordSize
	if len(data) < want {
		return 0, nil, errors.Corruption("embedstore.decodeSegment", "segment truncated relative to declared record count", nil)
	}

	out := make([]vectorRecord, 0, count)
	off := headerSize
	for i := 0; i < count; i++ {
		id := model.SymbolId(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		vec := make(Vector, dim)
		for j := 0; j < dim; j++ {
			vec[j] = float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		out = append(out, vectorRecord{id: id, vector: vec})
	}
	return dim, out, nil
}

type vectorRecord struct {
	id     model.SymbolId
	vector Vector
}
