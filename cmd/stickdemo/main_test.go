package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-boogie/internal/frame"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

func TestProduceThenConsume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - {x: 50, y: 0}\n"), 0644))

	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := produce(ctx, &buf, path, 10*time.Millisecond, false)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotZero(t, buf.Len())
	require.Zero(t, buf.Len()%frame.Size)

	d := frame.NewDecoder(bytes.NewReader(buf.Bytes()))
	f, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, stick.Up, stick.Classify(float64(f.X), float64(f.Y)))

	assert.NoError(t, consume(bytes.NewReader(buf.Bytes()), false))
}

func TestProduceLegacy(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = produce(ctx, &buf, "", 10*time.Millisecond, true)
	require.NotZero(t, buf.Len())
	assert.Zero(t, buf.Len()%frame.LegacySize)
	assert.NoError(t, consume(bytes.NewReader(buf.Bytes()), true))
}

func TestConsumeTruncated(t *testing.T) {
	b := frame.Encode(frame.Frame{X: 1, Y: 2})
	assert.Error(t, consume(bytes.NewReader(b[:5]), false))
}

func TestSweep(t *testing.T) {
	s := newSweep()
	var seen []stick.Direction
	for i := 0; i < 5*len(sweepOrder); i++ {
		x, y, err := s.Convert(context.Background())
		require.NoError(t, err)
		if i%5 == 0 {
			seen = append(seen, stick.NewReading(x, y).Direction())
		}
	}
	assert.Equal(t, sweepOrder[:], seen)
}
