// Package frame encodes the stick telemetry record sent once per sample to
// an external display application.
//
// Version 1 layout (10 bytes):
//
//	0     0x55 sentinel
//	1     version (1)
//	2..5  X percent, IEEE-754 float32, little-endian
//	6..9  Y percent, IEEE-754 float32, little-endian
//
// The legacy layout (9 bytes) has no version byte; it is what the first
// display application reads, and is fixed here to little-endian.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	Sentinel = 0x55
	Version  = 1

	Size       = 10
	LegacySize = 9
)

// ErrVersion is returned for a frame whose version byte is not understood.
var ErrVersion = errors.New("frame: unknown version")

// Frame is one stick sample in percent of full scale.
type Frame struct {
	X float32
	Y float32
}

// Encode returns the version 1 encoding of f.
func Encode(f Frame) []byte {
	b := make([]byte, Size)
	b[0] = Sentinel
	b[1] = Version
	binary.LittleEndian.PutUint32(b[2:], math.Float32bits(f.X))
	binary.LittleEndian.PutUint32(b[6:], math.Float32bits(f.Y))
	return b
}

// EncodeLegacy returns the 9-byte unversioned encoding of f.
func EncodeLegacy(f Frame) []byte {
	b := make([]byte, LegacySize)
	b[0] = Sentinel
	binary.LittleEndian.PutUint32(b[1:], math.Float32bits(f.X))
	binary.LittleEndian.PutUint32(b[5:], math.Float32bits(f.Y))
	return b
}

// Decoder reads frames from a byte stream, skipping bytes until a sentinel.
type Decoder struct {
	r      *bufio.Reader
	legacy bool
	// Skipped counts bytes discarded while resynchronising.
	Skipped int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// NewLegacyDecoder reads the 9-byte layout.
func NewLegacyDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), legacy: true}
}

// Next returns the next frame. It returns io.EOF at a clean end of stream
// and io.ErrUnexpectedEOF inside a truncated frame.
func (d *Decoder) Next() (Frame, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b == Sentinel {
			break
		}
		d.Skipped++
	}
	if !d.legacy {
		v, err := d.r.ReadByte()
		if err != nil {
			return Frame{}, io.ErrUnexpectedEOF
		}
		if v != Version {
			return Frame{}, fmt.Errorf("%w %d", ErrVersion, v)
		}
	}
	var body [8]byte
	if _, err := io.ReadFull(d.r, body[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{
		X: math.Float32frombits(binary.LittleEndian.Uint32(body[0:])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(body[4:])),
	}, nil
}
