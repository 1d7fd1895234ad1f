package image

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/fat"
	"github.com/rstms/stablefs/storage"
	"github.com/rstms/stablefs/storage/memory"
)

func newRoot(t *testing.T) stablefs.Directory {
	device := memory.New(storage.Config{MaxPages: 4})
	_, err := device.Grow(4)
	require.Nil(t, err)
	require.Nil(t, fat.FormatSuperFloppy(device, &fat.SuperFloppyConfig{Label: "image"}))
	fs, err := fat.New(device)
	require.Nil(t, err)
	root, err := fs.RootDir()
	require.Nil(t, err)
	return root
}

func TestImageScanFiles(t *testing.T) {
	root := newRoot(t)
	efi, err := Mkdir(root, "EFI")
	require.Nil(t, err)
	boot, err := Mkdir(efi, "BOOT")
	require.Nil(t, err)
	_, err = AddFile(boot, "bootx64.efi", strings.NewReader("MZ"))
	require.Nil(t, err)
	_, err = AddFile(root, "syslinux.cfg", strings.NewReader("default menu"))
	require.Nil(t, err)

	records, err := ScanFiles(root)
	require.Nil(t, err)
	var names []string
	for _, record := range records {
		names = append(names, record.Name)
	}
	require.Equal(t, []string{"./EFI", "./EFI/BOOT", "./EFI/BOOT/bootx64.efi", "./syslinux.cfg"}, names)
	require.True(t, records[0].Dir)
	require.False(t, records[2].Dir)
	require.Equal(t, uint64(2), records[2].Size)
	require.Equal(t, "BOOTX64.EFI", records[2].ShortName)
	require.False(t, records[3].Hidden)
}

func TestImageMkdirExisting(t *testing.T) {
	root := newRoot(t)
	_, err := Mkdir(root, "files")
	require.Nil(t, err)
	_, err = Mkdir(root, "FILES")
	require.Nil(t, err)
	require.Len(t, root.Entries(), 1)

	_, err = AddFile(root, "plain", strings.NewReader("x"))
	require.Nil(t, err)
	_, err = Mkdir(root, "plain")
	require.True(t, errors.Is(err, stablefs.ErrNotADirectory))
}

func TestImageAddFileReplaces(t *testing.T) {
	root := newRoot(t)
	_, err := AddFile(root, "howdy", strings.NewReader("howdy howdy howdy"))
	require.Nil(t, err)
	count, err := AddFile(root, "howdy", strings.NewReader("hi"))
	require.Nil(t, err)
	require.Equal(t, int64(2), count)
	require.Equal(t, uint64(2), root.Entry("howdy").Size())
}

func TestImageImportExport(t *testing.T) {
	src := memfs.New()
	require.Nil(t, util.WriteFile(src, "/foo", []byte("foo data"), 0600))
	require.Nil(t, util.WriteFile(src, "/files/bar", []byte("bar data"), 0600))
	require.Nil(t, util.WriteFile(src, "/files/deeper/baz", []byte(""), 0600))

	root := newRoot(t)
	count, err := Import(root, src, "/")
	require.Nil(t, err)
	require.Equal(t, 3, count)

	records, err := ScanFiles(root)
	require.Nil(t, err)
	require.Len(t, records, 5)

	dst := memfs.New()
	count, err = Export(root, dst, "/out")
	require.Nil(t, err)
	require.Equal(t, 3, count)

	data, err := util.ReadFile(dst, "/out/foo")
	require.Nil(t, err)
	require.Equal(t, "foo data", string(data))
	data, err = util.ReadFile(dst, "/out/files/bar")
	require.Nil(t, err)
	require.Equal(t, "bar data", string(data))
	info, err := dst.Stat("/out/files/deeper")
	require.Nil(t, err)
	require.True(t, info.IsDir())
}

func TestImageImportSubtree(t *testing.T) {
	src := memfs.New()
	require.Nil(t, util.WriteFile(src, "/data/a.txt", []byte("a"), 0600))
	require.Nil(t, util.WriteFile(src, "/other/b.txt", []byte("b"), 0600))

	root := newRoot(t)
	count, err := Import(root, src, "/data")
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.NotNil(t, root.Entry("a.txt"))
	require.Nil(t, root.Entry("b.txt"))
}
