package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	magic         = "CSGD"
	version       = 1
	headerSize    = len(magic) + 2
	recordHead    = 1 + 8 + 4 + 4
	defaultBlock  = 64 << 10
	maxDimensions = (maxBlockSize - recordHead) / 8
)

// Kind tells which side of the matcher a record feeds.
type Kind uint8

const (
	// KindLocal is a descriptor of the replaying robot's own keyframe.
	KindLocal Kind = 1
	// KindRemote is a descriptor received from a peer robot.
	KindRemote Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindLocal && k != KindRemote {
		return nil, fmt.Errorf("codec: invalid record kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "local":
		*k = KindLocal
	case "remote":
		*k = KindRemote
	default:
		return fmt.Errorf("codec: invalid record kind %q", text)
	}
	return nil
}

// Record is one descriptor event of a log.
type Record struct {
	Kind    Kind      `json:"kind"`
	ImageID int64     `json:"image_id"`
	RobotID int32     `json:"robot_id"`
	Vector  []float64 `json:"descriptor"`
}

func (r Record) encodedSize() int {
	return recordHead + 8*len(r.Vector)
}

func (r Record) appendTo(dst []byte) []byte {
	dst = append(dst, byte(r.Kind))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(r.ImageID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(r.RobotID))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Vector)))
	for _, x := range r.Vector {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(x))
	}
	return dst
}

// RecordReader is implemented by every log reader of this package.
type RecordReader interface {
	// Next returns the next record, or io.EOF after the last one.
	Next() (Record, error)
}

// Writer writes a binary descriptor log.
// A Writer is not safe for concurrent use.
type Writer struct {
	w           io.Writer
	compression Compression
	blockSize   int
	buf         []byte
	records     int
	closed      bool
}

// NewWriter writes the log header to w and returns a Writer.
func NewWriter(w io.Writer, c Compression) (*Writer, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}

	hdr := append([]byte(magic), version, byte(c))
	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}

	return &Writer{
		w:           w,
		compression: c,
		blockSize:   defaultBlock,
		buf:         make([]byte, 0, defaultBlock),
	}, nil
}

// Write appends rec to the log. Records are buffered per block.
func (w *Writer) Write(rec Record) error {
	if w.closed {
		return errors.New("codec: write to closed writer")
	}
	if rec.Kind != KindLocal && rec.Kind != KindRemote {
		return fmt.Errorf("codec: invalid record kind %d", uint8(rec.Kind))
	}
	if len(rec.Vector) > maxDimensions {
		return fmt.Errorf("codec: descriptor too large: %d dimensions", len(rec.Vector))
	}

	if len(w.buf) > 0 && len(w.buf)+rec.encodedSize() > w.blockSize {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	w.buf = rec.appendTo(w.buf)
	w.records++
	return nil
}

// Flush writes the pending block, if any.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	block, err := compressBlock(w.buf, w.compression)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(block); err != nil {
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

// Records returns the number of records written so far.
func (w *Writer) Records() int {
	return w.records
}

// Close flushes the pending block. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.Flush()
}

// Reader reads a binary descriptor log.
type Reader struct {
	r           io.Reader
	compression Compression
	block       []byte
	hdr         [blockHeaderSize]byte
}

// NewReader reads and validates the log header.
func NewReader(r io.Reader) (*Reader, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if string(hdr[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, hdr[:len(magic)])
	}
	if v := hdr[len(magic)]; v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	c := Compression(hdr[len(magic)+1])
	if !c.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}

	return &Reader{r: r, compression: c}, nil
}

// Compression returns the compression the log was written with.
func (r *Reader) Compression() Compression {
	return r.compression
}

// Next returns the next record, or io.EOF after the last one.
// The returned vector is owned by the caller.
func (r *Reader) Next() (Record, error) {
	if len(r.block) == 0 {
		if err := r.readBlock(); err != nil {
			return Record{}, err
		}
	}

	if len(r.block) < recordHead {
		return Record{}, fmt.Errorf("%w: truncated record", ErrCorrupt)
	}
	rec := Record{
		Kind:    Kind(r.block[0]),
		ImageID: int64(binary.LittleEndian.Uint64(r.block[1:])),
		RobotID: int32(binary.LittleEndian.Uint32(r.block[9:])),
	}
	if rec.Kind != KindLocal && rec.Kind != KindRemote {
		return Record{}, fmt.Errorf("%w: invalid record kind %d", ErrCorrupt, r.block[0])
	}

	dim := int(binary.LittleEndian.Uint32(r.block[13:]))
	body := r.block[recordHead:]
	if dim > len(body)/8 {
		return Record{}, fmt.Errorf("%w: truncated descriptor", ErrCorrupt)
	}

	rec.Vector = make([]float64, dim)
	for i := range rec.Vector {
		rec.Vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
	}
	r.block = body[8*dim:]
	return rec, nil
}

func (r *Reader) readBlock() error {
	for {
		n, err := io.ReadFull(r.r, r.hdr[:])
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return fmt.Errorf("%w: block header (%d bytes): %w", ErrCorrupt, n, err)
		}

		uncompressed := binary.LittleEndian.Uint32(r.hdr[0:])
		compressed := binary.LittleEndian.Uint32(r.hdr[4:])
		if uncompressed > maxBlockSize || compressed > maxBlockSize {
			return fmt.Errorf("%w: block too large", ErrCorrupt)
		}

		stored := uncompressed
		if compressed != 0 {
			stored = compressed
		}
		payload := make([]byte, stored)
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return fmt.Errorf("%w: block payload: %w", ErrCorrupt, err)
		}

		block, err := decompressBlock(payload, uncompressed, compressed, r.compression)
		if err != nil {
			return err
		}
		if len(block) > 0 {
			r.block = block
			return nil
		}
	}
}

// JSONReader reads one JSON-encoded Record per line. Blank lines and lines
// starting with '#' are skipped.
type JSONReader struct {
	sc    *bufio.Scanner
	codec Codec
	line  int
}

// NewJSONReader returns a JSONReader decoding with c, or Default if c is nil.
func NewJSONReader(r io.Reader, c Codec) *JSONReader {
	if c == nil {
		c = Default
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxBlockSize)
	return &JSONReader{sc: sc, codec: c}
}

// Next returns the next record, or io.EOF after the last one.
func (r *JSONReader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var rec Record
		if err := r.codec.Unmarshal(line, &rec); err != nil {
			return Record{}, fmt.Errorf("%w: line %d: %w", ErrCorrupt, r.line, err)
		}
		if rec.Kind == 0 {
			return Record{}, fmt.Errorf("%w: line %d: missing kind", ErrCorrupt, r.line)
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// Open returns a reader for r, detecting binary logs by their magic and
// treating anything else as JSON lines.
func Open(r io.Reader) (RecordReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(magic))
	if err == nil && string(head) == magic {
		return NewReader(br)
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	return NewJSONReader(br, nil), nil
}
