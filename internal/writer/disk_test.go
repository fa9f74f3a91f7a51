package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskWriter_NamesFilesSequentially(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDiskWriter(dir, "chat", zerolog.Nop())
	require.NoError(t, err)

	first := domain.NewDocument(0)
	first.AddLine(" alice: hi")
	first.AddLine(" bob: hello")
	second := domain.NewDocument(1)
	second.AddLine(" carol: bye")

	require.NoError(t, w.Write(context.Background(), first))
	require.NoError(t, w.Write(context.Background(), second))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, "chat1"))
	require.NoError(t, err)
	assert.Equal(t, " alice: hi"+domain.LineSeparator+" bob: hello"+domain.LineSeparator, string(data))

	data, err = os.ReadFile(filepath.Join(dir, "chat2"))
	require.NoError(t, err)
	assert.Equal(t, " carol: bye"+domain.LineSeparator, string(data))

	assert.Equal(t, 2, w.Count())
}

func TestDiskWriter_AppendsSeparator(t *testing.T) {
	dir := t.TempDir()

	w, err := NewDiskWriter(dir, "p", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, dir+string(filepath.Separator), w.Dir())

	w, err = NewDiskWriter(dir+string(filepath.Separator), "p", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, dir+string(filepath.Separator), w.Dir())
}

func TestDiskWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	w, err := NewDiskWriter(dir, "doc", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), domain.NewDocument(0)))

	info, err := os.Stat(filepath.Join(dir, "doc1"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestDiskWriter_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	// a directory squatting on the second file name makes that write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "doc2"), 0o755))

	w, err := NewDiskWriter(dir, "doc", zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		doc := domain.NewDocument(i)
		doc.AddLine("line")
		err := w.Write(context.Background(), doc)
		if i == 1 {
			assert.ErrorIs(t, err, domain.ErrWrite)
			continue
		}
		assert.NoError(t, err)
	}

	assert.FileExists(t, filepath.Join(dir, "doc1"))
	assert.FileExists(t, filepath.Join(dir, "doc3"))
	assert.Equal(t, 3, w.Count())
}

func TestNewDiskWriter_EmptyDir(t *testing.T) {
	_, err := NewDiskWriter("", "doc", zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDiskWriter_ContinueAfter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDiskWriter(dir, "doc", zerolog.Nop())
	require.NoError(t, err)

	w.ContinueAfter(4)
	require.NoError(t, w.Write(context.Background(), domain.NewDocument(4)))

	assert.FileExists(t, filepath.Join(dir, "doc5"))
	assert.Equal(t, 5, w.Count())
}
