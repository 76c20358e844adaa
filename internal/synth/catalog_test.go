package synth

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/PixPMusic/gopher-instruments/internal/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// lineReader builds one synth per line of input, each with a single
// instrument unless the line starts with "empty:".
type lineReader struct {
	ext string
}

func (r lineReader) Extensions() []string { return []string{r.ext} }

func (r lineReader) Read(in io.Reader, path string) ([]*MidiSynth, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	var synths []*MidiSynth
	for i, line := range splitLines(string(data)) {
		empty := false
		if len(line) > 6 && line[:6] == "empty:" {
			empty, line = true, line[6:]
		}
		s, err := NewMidiSynth(line, "")
		if err != nil {
			return nil, err
		}
		if !empty {
			b, _ := NewBank("Main", 0, 0, midi.MethodPCOnly)
			ins, _ := NewInstrument(fmt.Sprintf("Patch %d", i), midi.MustAddress(0, midi.Undefined, midi.Undefined, midi.MethodUndefined), nil)
			if err := b.Add(ins); err != nil {
				return nil, err
			}
			if err := s.AddBank(b); err != nil {
				return nil, err
			}
		}
		synths = append(synths, s)
	}
	return synths, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReaderRegistry_LoadFromDefinitionFile(t *testing.T) {
	reg := NewReaderRegistry(lineReader{ext: ".txt"})

	path := writeFile(t, "synths.TXT", "Alpha\nempty:Beta\nGamma\n")
	synths, err := reg.LoadFromDefinitionFile(path)
	require.NoError(t, err)
	require.Len(t, synths, 2)
	assert.Equal(t, "Alpha", synths[0].Name())
	assert.Equal(t, "Gamma", synths[1].Name())
	for _, s := range synths {
		assert.Equal(t, path, s.File())
	}
}

func TestReaderRegistry_Errors(t *testing.T) {
	reg := NewReaderRegistry(lineReader{ext: ".txt"})

	_, err := reg.LoadFromDefinitionFile(writeFile(t, "synths.ins", "Alpha\n"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = reg.LoadFromDefinitionFile(writeFile(t, "synths.txt", "empty:Alpha\n"))
	assert.ErrorIs(t, err, ErrNoUsableSynth)

	_, err = reg.LoadFromDefinitionFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(zaptest.NewLogger(t))
	require.Len(t, c.Synths(), 1)
	assert.Same(t, c.GM(), c.Synths()[0])
	assert.True(t, c.GM1Bank().IsGM1())
	assert.False(t, c.Remove(c.GM()))

	reg := NewReaderRegistry(lineReader{ext: ".txt"})
	path := writeFile(t, "synths.txt", "Alpha\nBeta\n")
	added, err := c.LoadDefinitionFile(path, reg)
	require.NoError(t, err)
	assert.Len(t, added, 2)
	assert.Len(t, c.Synths(), 3)

	// loading the same file again registers nothing new
	added, err = c.LoadDefinitionFile(path, reg)
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Len(t, c.Synths(), 3)

	alpha := c.FindSynth("alpha", path)
	require.NotNil(t, alpha)
	assert.Same(t, alpha, c.FindSynth("Alpha", "/elsewhere/synths.txt"), "name-only fallback")
	assert.Nil(t, c.FindSynth("Delta", path))

	assert.True(t, c.Remove(alpha))
	assert.False(t, c.Remove(alpha))
	assert.Nil(t, c.FindSynth("Alpha", path))
}
