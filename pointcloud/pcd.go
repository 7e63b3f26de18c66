package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// PCDType is the data encoding of a pcd file.
type PCDType int

const (
	// PCDAscii is the ascii pcd encoding.
	PCDAscii PCDType = 0
	// PCDBinary is the binary pcd encoding.
	PCDBinary PCDType = 1
)

type pcdHeader struct {
	fields []string
	sizes  []int
	types  []string
	counts []int
	width  int
	height int
	points int
	data   PCDType
}

func (h *pcdHeader) fieldIndex(name string) int {
	for i, f := range h.fields {
		if f == name {
			return i
		}
	}
	return -1
}

// fieldColumns returns, per field, the index of its first value within one
// point record, accounting for fields that carry more than one value.
func (h *pcdHeader) fieldColumns() []int {
	cols := make([]int, len(h.fields))
	col := 0
	for i, c := range h.counts {
		cols[i] = col
		col += c
	}
	return cols
}

// NewFromFile reads a pcd file into a cloud tagged with the given frame and
// capture time.
func NewFromFile(fn, frameID string, captured time.Time) (*Cloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening pcd file %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	cloud, err := ReadPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading pcd file %q", fn)
	}
	return cloud.WithFrame(frameID, captured), nil
}

// ReadPCD reads pcd data (ascii or binary) into a cloud with an empty frame
// ID and zero timestamp; callers attach frame metadata with WithFrame.
func ReadPCD(inRaw io.Reader) (*Cloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := parsePCDHeader(in)
	if err != nil {
		return nil, err
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func parsePCDHeader(in *bufio.Reader) (*pcdHeader, error) {
	header := &pcdHeader{width: 1, height: 1, points: -1}
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "error reading pcd header")
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		name, rest := tokens[0], tokens[1:]
		if len(rest) == 0 {
			return nil, errors.Errorf("pcd header line %q has no values", line)
		}
		switch name {
		case "VERSION", "VIEWPOINT":
			// accepted and ignored
		case "FIELDS":
			header.fields = rest
		case "SIZE":
			header.sizes = make([]int, 0, len(rest))
			for _, tok := range rest {
				size, err := strconv.Atoi(tok)
				if err != nil {
					return nil, errors.Errorf("invalid SIZE %q in pcd header", tok)
				}
				header.sizes = append(header.sizes, size)
			}
		case "COUNT":
			header.counts = make([]int, 0, len(rest))
			for _, tok := range rest {
				count, err := strconv.Atoi(tok)
				if err != nil {
					return nil, errors.Errorf("invalid COUNT %q in pcd header", tok)
				}
				header.counts = append(header.counts, count)
			}
		case "TYPE":
			header.types = rest
		case "WIDTH":
			if header.width, err = strconv.Atoi(rest[0]); err != nil {
				return nil, errors.Errorf("invalid WIDTH %q in pcd header", rest[0])
			}
		case "HEIGHT":
			if header.height, err = strconv.Atoi(rest[0]); err != nil {
				return nil, errors.Errorf("invalid HEIGHT %q in pcd header", rest[0])
			}
		case "POINTS":
			if header.points, err = strconv.Atoi(rest[0]); err != nil {
				return nil, errors.Errorf("invalid POINTS %q in pcd header", rest[0])
			}
		case "DATA":
			switch rest[0] {
			case "ascii":
				header.data = PCDAscii
			case "binary":
				header.data = PCDBinary
			default:
				return nil, errors.Errorf("unsupported pcd DATA encoding %q", rest[0])
			}
			return validatePCDHeader(header)
		default:
			return nil, errors.Errorf("unknown pcd header field %q", name)
		}
	}
}

func validatePCDHeader(header *pcdHeader) (*pcdHeader, error) {
	if len(header.fields) == 0 || len(header.fields) != len(header.sizes) || len(header.fields) != len(header.types) {
		return nil, errors.New("pcd header FIELDS, SIZE and TYPE must agree")
	}
	if header.counts == nil {
		// a missing COUNT line means one value per field
		header.counts = make([]int, len(header.fields))
		for i := range header.counts {
			header.counts[i] = 1
		}
	}
	if len(header.counts) != len(header.fields) {
		return nil, errors.New("pcd header FIELDS and COUNT must agree")
	}
	for i, count := range header.counts {
		if count < 1 {
			return nil, errors.Errorf("pcd field %q has invalid COUNT %d", header.fields[i], count)
		}
	}
	for _, name := range []string{"x", "y", "z"} {
		i := header.fieldIndex(name)
		if i < 0 {
			return nil, errors.Errorf("pcd header missing field %q", name)
		}
		if header.types[i] != "F" {
			return nil, errors.Errorf("pcd field %q must be type F, got %q", name, header.types[i])
		}
		if header.sizes[i] != 4 && header.sizes[i] != 8 {
			return nil, errors.Errorf("pcd field %q must be 4 or 8 bytes, got %d", name, header.sizes[i])
		}
		if header.counts[i] != 1 {
			return nil, errors.Errorf("pcd field %q must have COUNT 1, got %d", name, header.counts[i])
		}
	}
	if header.points < 0 {
		header.points = header.width * header.height
	}
	if header.points != header.width*header.height {
		return nil, errors.Errorf("pcd POINTS %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
	}
	return header, nil
}

func readPCDAscii(in *bufio.Reader, header *pcdHeader) (*Cloud, error) {
	xi, yi, zi := header.fieldIndex("x"), header.fieldIndex("y"), header.fieldIndex("z")
	cols := header.fieldColumns()
	totalValues := 0
	for _, count := range header.counts {
		totalValues += count
	}
	cloud := NewWithPrealloc("", time.Time{}, header.points)
	for i := 0; i < header.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "error reading pcd point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != totalValues {
			return nil, errors.Errorf("pcd point %d has %d values, expected %d", i, len(tokens), totalValues)
		}
		var pt r3.Vector
		for _, target := range []struct {
			name string
			col  int
			dst  *float64
		}{{"x", cols[xi], &pt.X}, {"y", cols[yi], &pt.Y}, {"z", cols[zi], &pt.Z}} {
			v, err := strconv.ParseFloat(tokens[target.col], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "error parsing pcd point %d field %q", i, target.name)
			}
			*target.dst = v
		}
		cloud.Add(pt)
	}
	return cloud, nil
}

func readPCDBinary(in *bufio.Reader, header *pcdHeader) (*Cloud, error) {
	xi, yi, zi := header.fieldIndex("x"), header.fieldIndex("y"), header.fieldIndex("z")
	cloud := NewWithPrealloc("", time.Time{}, header.points)
	rowSize := 0
	offsets := make([]int, len(header.fields))
	for i, size := range header.sizes {
		offsets[i] = rowSize
		rowSize += size * header.counts[i]
	}
	row := make([]byte, rowSize)
	for i := 0; i < header.points; i++ {
		if _, err := io.ReadFull(in, row); err != nil {
			return nil, errors.Wrapf(err, "error reading pcd point %d", i)
		}
		pt := r3.Vector{
			X: readPCDFloat(row[offsets[xi]:], header.sizes[xi]),
			Y: readPCDFloat(row[offsets[yi]:], header.sizes[yi]),
			Z: readPCDFloat(row[offsets[zi]:], header.sizes[zi]),
		}
		cloud.Add(pt)
	}
	return cloud, nil
}

func readPCDFloat(b []byte, size int) float64 {
	if size == 8 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

// WriteToFile writes the cloud to a pcd file with the given encoding.
func WriteToFile(cloud *Cloud, fn string, outputType PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return errors.Wrapf(err, "error creating pcd file %q", fn)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ToPCD(cloud, f, outputType)
}

// ToPCD writes the cloud as x/y/z float32 pcd data.
func ToPCD(cloud *Cloud, out io.Writer, outputType PCDType) error {
	var dataType string
	switch outputType {
	case PCDAscii:
		dataType = "ascii"
	case PCDBinary:
		dataType = "binary"
	default:
		return errors.Errorf("unsupported pcd data type %v", outputType)
	}
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n", cloud.Size(), cloud.Size(), dataType)
	if err != nil {
		return err
	}
	buf := make([]byte, 12)
	cloud.Iterate(func(p r3.Vector) bool {
		switch outputType {
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			_, err = out.Write(buf)
		}
		return err == nil
	})
	return err
}
