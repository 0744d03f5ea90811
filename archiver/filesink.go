package archiver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FileSink is the concrete Sink backing cmd/master: it appends one record
// per Dump to a file, either as fixed-width binary or as a text line,
// selected by Config.Binary.
type FileSink struct {
	f      *os.File
	w      *bufio.Writer
	binary bool
	width  int
}

// NewFileSink opens (creating if necessary) path for append and returns a
// Sink that writes width-wide parameter snapshots to it.
func NewFileSink(path string, width int, binaryFormat bool) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive file %q", path)
	}
	return &FileSink{f: f, w: bufio.NewWriter(f), binary: binaryFormat, width: width}, nil
}

// recordLayout: int64 iter | float64 wallTime | uint32 width | width*float64
// values, all little-endian. Kept fixed-width so Resume can count whole
// records and ignore a partially written trailing one.
func (s *FileSink) recordSize() int64 {
	return 8 + 8 + 4 + int64(s.width)*8
}

// Dump appends one record. Binary records are written and flushed with a
// single Write so a crash mid-record leaves the previous record intact
// for Resume to recover from.
func (s *FileSink) Dump(iter int64, wallTime float64, params []float64) error {
	if len(params) != s.width {
		return errors.Errorf("archiver: snapshot width %d != configured width %d", len(params), s.width)
	}
	if s.binary {
		return s.dumpBinary(iter, wallTime, params)
	}
	return s.dumpText(iter, wallTime, params)
}

func (s *FileSink) dumpBinary(iter int64, wallTime float64, params []float64) error {
	buf := make([]byte, s.recordSize())
	binary.LittleEndian.PutUint64(buf[0:8], uint64(iter))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(wallTime))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(s.width))
	off := 20
	for _, v := range params {
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(v))
		off += 8
	}
	if _, err := s.f.Write(buf); err != nil {
		return errors.Wrap(err, "write binary archive record")
	}
	return nil
}

func (s *FileSink) dumpText(iter int64, wallTime float64, params []float64) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d,%g", iter, wallTime)
	for _, v := range params {
		fmt.Fprintf(&sb, ",%g", v)
	}
	sb.WriteByte('\n')
	if _, err := s.w.WriteString(sb.String()); err != nil {
		return errors.Wrap(err, "write text archive record")
	}
	return s.w.Flush()
}

// Close flushes and closes the backing file.
func (s *FileSink) Close() error {
	if !s.binary {
		if err := s.w.Flush(); err != nil {
			return errors.Wrap(err, "flush archive file")
		}
	}
	return s.f.Close()
}

// Resume reads the last complete record from a binary archive file at path
// and returns the iteration, wall time, and parameter vector it recorded.
// A trailing partial record (the tail of a write interrupted mid-flush) is
// silently ignored. Resume returns io.EOF if the file has no complete
// record at all.
func Resume(path string) (iter int64, wallTime float64, params []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "open archive file %q", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "stat archive file")
	}
	if info.Size() < 20 {
		return 0, 0, nil, io.EOF
	}

	header := make([]byte, 20)
	if _, err := f.ReadAt(header, 0); err != nil {
		return 0, 0, nil, errors.Wrap(err, "read archive header")
	}
	width := int(binary.LittleEndian.Uint32(header[16:20]))
	recSize := int64(20 + width*8)
	if recSize <= 0 {
		return 0, 0, nil, errors.Errorf("archiver: invalid record width %d", width)
	}

	nRecords := info.Size() / recSize
	if nRecords == 0 {
		return 0, 0, nil, io.EOF
	}

	buf := make([]byte, recSize)
	if _, err := f.ReadAt(buf, (nRecords-1)*recSize); err != nil {
		return 0, 0, nil, errors.Wrap(err, "read last archive record")
	}

	iter = int64(binary.LittleEndian.Uint64(buf[0:8]))
	wallTime = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	params = make([]float64, width)
	off := 20
	for i := range params {
		params[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
	}
	return iter, wallTime, params, nil
}

// ParseTextRecord parses one line written by dumpText, for tools that read
// the text archive format back (e.g. offline inspection scripts).
func ParseTextRecord(line string) (iter int64, wallTime float64, params []float64, err error) {
	fields := strings.Split(strings.TrimRight(line, "\n"), ",")
	if len(fields) < 2 {
		return 0, 0, nil, errors.Errorf("archiver: malformed text record %q", line)
	}
	iter, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "parse iter field")
	}
	wallTime, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "parse wallTime field")
	}
	params = make([]float64, len(fields)-2)
	for i, f := range fields[2:] {
		params[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, nil, errors.Wrapf(err, "parse param field %d", i)
		}
	}
	return iter, wallTime, params, nil
}
