package fat

import (
	"bytes"
	"io"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
)

func newTestFile(t *testing.T, fs *FileSystem, name string) stablefs.File {
	entry, err := rootDir(t, fs).AddFile(name)
	require.Nil(t, err)
	f, err := entry.File()
	require.Nil(t, err)
	return f
}

func readAll(t *testing.T, f stablefs.File) []byte {
	_, err := f.Seek(0, io.SeekStart)
	require.Nil(t, err)
	data, err := io.ReadAll(f)
	require.Nil(t, err)
	return data
}

func TestFileWriteRead(t *testing.T) {
	fs, _ := newTestFS(t, 2)
	f := newTestFile(t, fs, "hello.txt")

	n, err := f.Write([]byte("hello "))
	require.Nil(t, err)
	require.Equal(t, 6, n)
	_, err = f.Write([]byte("world"))
	require.Nil(t, err)
	require.Equal(t, uint64(11), f.Size())
	require.Equal(t, []byte("hello world"), readAll(t, f))

	pos, err := f.Seek(-5, io.SeekEnd)
	require.Nil(t, err)
	require.Equal(t, int64(6), pos)
	buf := make([]byte, 10)
	n, err = f.Read(buf)
	require.Nil(t, err)
	require.Equal(t, "world", string(buf[:n]))
	_, err = f.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestFileSpansClusters(t *testing.T) {
	fs, device := newTestFS(t, 2)
	free := fs.FreeClusters()
	f := newTestFile(t, fs, "big.bin")

	data := bytes.Repeat([]byte("0123456789abcdef"), 700)
	_, err := f.Write(data)
	require.Nil(t, err)
	require.Nil(t, f.Close())
	require.Equal(t, free-3, fs.FreeClusters())

	remounted, err := New(device)
	require.Nil(t, err)
	entry := rootDir(t, remounted).Entry("big.bin")
	require.NotNil(t, entry)
	require.Equal(t, uint64(len(data)), entry.Size())
	g, err := entry.File()
	require.Nil(t, err)
	require.Equal(t, data, readAll(t, g))
}

func TestFileTruncate(t *testing.T) {
	fs, _ := newTestFS(t, 2)
	free := fs.FreeClusters()
	f := newTestFile(t, fs, "t")

	_, err := f.Write(bytes.Repeat([]byte{'x'}, 9000))
	require.Nil(t, err)
	require.Equal(t, free-3, fs.FreeClusters())

	require.Nil(t, f.Truncate(10))
	require.Equal(t, uint64(10), f.Size())
	require.Equal(t, free-1, fs.FreeClusters())

	require.Nil(t, f.Truncate(20))
	expected := append(bytes.Repeat([]byte{'x'}, 10), make([]byte, 10)...)
	require.Equal(t, expected, readAll(t, f))

	require.Nil(t, f.Truncate(0))
	require.Empty(t, readAll(t, f))

	err = f.Truncate(-1)
	require.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestFileWritePastEnd(t *testing.T) {
	fs, _ := newTestFS(t, 2)
	f := newTestFile(t, fs, "gap")

	_, err := f.Write([]byte("abcdef"))
	require.Nil(t, err)
	require.Nil(t, f.Truncate(2))
	_, err = f.Seek(5, io.SeekStart)
	require.Nil(t, err)
	_, err = f.Write([]byte("z"))
	require.Nil(t, err)
	require.Equal(t, []byte{'a', 'b', 0, 0, 0, 'z'}, readAll(t, f))
}

func TestFileSeekErrors(t *testing.T) {
	fs, _ := newTestFS(t, 2)
	f := newTestFile(t, fs, "s")

	_, err := f.Seek(-1, io.SeekStart)
	require.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	_, err = f.Seek(0, 42)
	require.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestFileStorageExhausted(t *testing.T) {
	fs, _ := newTestFS(t, 1)
	f := newTestFile(t, fs, "full")
	free := fs.FreeClusters()

	_, err := f.Write(make([]byte, 14*4096))
	require.True(t, errors.Is(err, stablefs.ErrStorageExhausted))
	require.Zero(t, f.Size())
	require.Equal(t, free, fs.FreeClusters())

	_, err = f.Write(make([]byte, (int(free)+1)*4096))
	require.Nil(t, err)
	require.Zero(t, fs.FreeClusters())
}

func TestFileInSubdirectoryPersists(t *testing.T) {
	fs, device := newTestFS(t, 2)
	sub, err := rootDir(t, fs).AddDirectory("logs")
	require.Nil(t, err)
	subDir, err := sub.Dir()
	require.Nil(t, err)
	entry, err := subDir.AddFile("app.log")
	require.Nil(t, err)
	f, err := entry.File()
	require.Nil(t, err)
	_, err = f.Write([]byte("line one\n"))
	require.Nil(t, err)
	require.Nil(t, f.Sync())

	remounted, err := New(device)
	require.Nil(t, err)
	dir, err := rootDir(t, remounted).OpenDir("logs")
	require.Nil(t, err)
	got := dir.Entry("app.log")
	require.NotNil(t, got)
	require.Equal(t, uint64(9), got.Size())
}
