package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// indexMagic identifies a serialised index.
var indexMagic = [4]byte{'K', 'B', 'I', 'X'}

// indexVersion is the current on-disk layout.
const indexVersion uint32 = 1

// maxVectors bounds the header count to reject garbage before allocating.
const maxVectors = 1 << 26

// ErrCorruptIndex indicates serialised index data that cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt index data")

// EncodeVector packs v as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 values.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32 values", ErrCorruptIndex, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// WriteIndex serialises vectors of the given dimension:
// magic, version, dimension, count, then count*dimension float32 values.
func WriteIndex(w io.Writer, dimension int, vectors [][]float32) error {
	bw := bufio.NewWriter(w)

	header := []uint32{indexVersion, uint32(dimension), uint32(len(vectors))}
	if _, err := bw.Write(indexMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector %d has %d values, want %d", i, len(v), dimension)
		}
		if _, err := bw.Write(EncodeVector(v)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadIndex decodes data written by WriteIndex.
func ReadIndex(r io.Reader) (dimension int, vectors [][]float32, err error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: header: %w", ErrCorruptIndex, err)
	}
	if magic != indexMagic {
		return 0, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic[:])
	}

	var header [3]uint32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("%w: header: %w", ErrCorruptIndex, err)
	}
	version, dim, count := header[0], int(header[1]), int(header[2])
	if version != indexVersion {
		return 0, nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, version)
	}
	if dim <= 0 || count > maxVectors {
		return 0, nil, fmt.Errorf("%w: dimension %d, count %d", ErrCorruptIndex, dim, count)
	}

	row := make([]byte, dim*4)
	vectors = make([][]float32, count)
	for i := range vectors {
		if _, err := io.ReadFull(br, row); err != nil {
			return 0, nil, fmt.Errorf("%w: vector %d: %w", ErrCorruptIndex, i, err)
		}
		if vectors[i], err = DecodeVector(row); err != nil {
			return 0, nil, err
		}
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return 0, nil, fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptIndex, count)
	}
	return dim, vectors, nil
}
