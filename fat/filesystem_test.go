package fat

import (
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
	"github.com/rstms/stablefs/storage/memory"
)

func newDevice(t *testing.T, pages uint64) stablefs.StorageBlock {
	device := memory.New(storage.Config{MaxPages: pages})
	_, err := device.Grow(pages)
	require.Nil(t, err)
	return device
}

func newTestFS(t *testing.T, pages uint64) (*FileSystem, stablefs.StorageBlock) {
	device := newDevice(t, pages)
	err := FormatSuperFloppy(device, &SuperFloppyConfig{Label: "test", OEMName: "stablefs"})
	require.Nil(t, err)
	fs, err := New(device)
	require.Nil(t, err)
	return fs, device
}

func TestFileSystemImplementsFileSystem(t *testing.T) {
	var raw interface{}
	raw = new(FileSystem)
	if _, ok := raw.(stablefs.FileSystem); !ok {
		t.Fatal("FileSystem should be a FileSystem")
	}
}

func TestFormatThenMount(t *testing.T) {
	fs, _ := newTestFS(t, 4)

	label, err := fs.VolumeLabel()
	require.Nil(t, err)
	require.Equal(t, "test", label)
	oem, err := fs.OEMName()
	require.Nil(t, err)
	require.Equal(t, "stablefs", oem)

	root, err := fs.RootDir()
	require.Nil(t, err)
	require.Empty(t, root.Entries())

	info, err := fs.Info()
	require.Nil(t, err)
	require.Equal(t, uint32(4096), info["cluster_size"])
	count := info["cluster_count"].(uint32)
	require.Equal(t, count-1, info["free_clusters"])
	require.Equal(t, uint64(4*stablefs.PageSize), info["total_bytes"])
}

func TestMountUnformatted(t *testing.T) {
	_, err := New(newDevice(t, 1))
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
	require.Equal(t, stablefs.CodeVolumeNotFormatted, errors.GetCode(err))

	_, err = New(memory.New(storage.Config{}))
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
}

func TestMountGarbage(t *testing.T) {
	device := newDevice(t, 1)
	garbage := make([]byte, SectorSize)
	for i := range garbage {
		garbage[i] = byte(i * 7)
	}
	garbage[510], garbage[511] = 0x55, 0xAA
	require.Nil(t, device.Write(0, garbage))
	_, err := New(device)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
}

func TestMountCrossLinkedFAT(t *testing.T) {
	fs, device := newTestFS(t, 2)
	root, err := fs.RootDir()
	require.Nil(t, err)
	_, err = root.AddFile("a")
	require.Nil(t, err)
	_, err = root.AddFile("b")
	require.Nil(t, err)

	// point both files' clusters at the same successor
	fs.fat.entries[3] = 5
	fs.fat.entries[4] = 5
	require.Nil(t, fs.fat.WriteToDevice(device))

	_, err = New(device)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
}

func TestMountRejectsOversizedVolume(t *testing.T) {
	_, device := newTestFS(t, 4)
	small := newDevice(t, 2)
	data, err := device.Read(0, 2*stablefs.PageSize)
	require.Nil(t, err)
	require.Nil(t, small.Write(0, data))
	_, err = New(small)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
}

func TestFormatTooSmall(t *testing.T) {
	device := newDevice(t, 1)
	err := FormatSuperFloppy(device, &SuperFloppyConfig{Size: 4 * SectorSize})
	require.True(t, errors.Is(err, stablefs.ErrStorageExhausted))
}

func TestFormatDiscardsContent(t *testing.T) {
	fs, device := newTestFS(t, 2)
	root, err := fs.RootDir()
	require.Nil(t, err)
	_, err = root.AddDirectory("logs")
	require.Nil(t, err)

	require.Nil(t, FormatSuperFloppy(device, &SuperFloppyConfig{}))
	fs, err = New(device)
	require.Nil(t, err)
	root, err = fs.RootDir()
	require.Nil(t, err)
	require.Empty(t, root.Entries())
	label, _ := fs.VolumeLabel()
	require.Equal(t, "NO NAME", label)
}

func TestRemountSeesChanges(t *testing.T) {
	fs, device := newTestFS(t, 2)
	root, err := fs.RootDir()
	require.Nil(t, err)
	entry, err := root.AddFile("notes.txt")
	require.Nil(t, err)
	f, err := entry.File()
	require.Nil(t, err)
	_, err = f.Write([]byte("remember"))
	require.Nil(t, err)
	require.Nil(t, f.Close())

	fs2, err := New(device)
	require.Nil(t, err)
	root2, err := fs2.RootDir()
	require.Nil(t, err)
	got := root2.Entry("NOTES.TXT")
	require.NotNil(t, got)
	require.Equal(t, "notes.txt", got.Name())
	require.Equal(t, uint64(8), got.Size())
	require.Equal(t, fs.FreeClusters(), fs2.FreeClusters())
}

func TestMountRejectsBadRecords(t *testing.T) {
	tests := map[string]func(fs *FileSystem, rec, other *DirectoryClusterEntry){
		"cluster zero":       func(fs *FileSystem, rec, other *DirectoryClusterEntry) { rec.cluster = 0 },
		"cluster past table": func(fs *FileSystem, rec, other *DirectoryClusterEntry) { rec.cluster = 999 },
		"free cluster": func(fs *FileSystem, rec, other *DirectoryClusterEntry) {
			rec.cluster = fs.bs.ClusterCount()
		},
		"shared chain": func(fs *FileSystem, rec, other *DirectoryClusterEntry) { rec.cluster = other.cluster },
		"root chain": func(fs *FileSystem, rec, other *DirectoryClusterEntry) {
			rec.cluster = fs.bs.RootCluster
		},
		"size past chain": func(fs *FileSystem, rec, other *DirectoryClusterEntry) {
			rec.fileSize = fs.bs.ClusterSize() + 1
		},
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			fs, device := newTestFS(t, 2)
			root := rootDir(t, fs)
			_, err := root.AddFile("a.txt")
			require.Nil(t, err)
			_, err = root.AddFile("b.txt")
			require.Nil(t, err)

			corrupt(fs, root.entry("a.txt").entry, root.entry("b.txt").entry)
			require.Nil(t, root.dirCluster.WriteToDevice(device, fs.fat))

			_, err = New(device)
			require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted), "got %v", err)
		})
	}
}

func TestMountRejectsBadNestedRecord(t *testing.T) {
	fs, device := newTestFS(t, 2)
	root := rootDir(t, fs)
	logs, err := root.AddDirectory("logs")
	require.Nil(t, err)
	sub, err := logs.Dir()
	require.Nil(t, err)
	_, err = sub.AddFile("app.log")
	require.Nil(t, err)

	_, err = New(device)
	require.Nil(t, err)

	dir := sub.(*Directory)
	dir.entry("app.log").entry.cluster = 0
	require.Nil(t, dir.dirCluster.WriteToDevice(device, fs.fat))

	_, err = New(device)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted), "got %v", err)
}
