package fat

import (
	"github.com/rstms/stablefs"
)

// FileSystem is the implementation of stablefs.FileSystem that can read
// and write a FAT filesystem.
type FileSystem struct {
	bs      *BootSector
	device  stablefs.StorageBlock
	fat     *FAT
	rootDir *DirectoryCluster
}

// ensure FileSystem implements stablefs.FileSystem
var _ stablefs.FileSystem = (*FileSystem)(nil)

// New mounts a previously formatted FAT filesystem. The boot sector, the
// allocation table and every directory record reachable from the root
// are validated; any inconsistency is reported as ErrVolumeNotFormatted.
func New(device stablefs.StorageBlock) (*FileSystem, error) {
	bs, err := DecodeBootSector(device)
	if err != nil {
		return nil, err
	}

	fat, err := DecodeFAT(device, bs, 0)
	if err != nil {
		return nil, err
	}

	rootDir, err := DecodeDirectoryCluster(bs.RootCluster, device, fat)
	if err != nil {
		return nil, err
	}

	if err := checkTree(device, bs, fat, rootDir); err != nil {
		return nil, err
	}

	result := &FileSystem{
		bs:      bs,
		device:  device,
		fat:     fat,
		rootDir: rootDir,
	}

	return result, nil
}

// checkTree walks every directory and requires each record's chain to be
// allocated, large enough for the record's size, and owned by that record
// alone.
func checkTree(device stablefs.StorageBlock, bs *BootSector, fat *FAT, root *DirectoryCluster) error {
	owner := make(map[uint32]uint32)
	claim := func(start uint32) ([]uint32, error) {
		chain, err := fat.Chain(start)
		if err != nil {
			return nil, err
		}
		for _, c := range chain {
			if first, ok := owner[c]; ok {
				return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted,
					"cluster %d is in chains %d and %d", c, first, start)
			}
			owner[c] = start
		}
		return chain, nil
	}

	if _, err := claim(root.startCluster); err != nil {
		return err
	}
	clusterSize := uint64(bs.ClusterSize())
	pending := []*DirectoryCluster{root}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, e := range dir.entries {
			if e.deleted || e.IsLong() || e.IsVolumeId() || e.isDot() {
				continue
			}
			chain, err := claim(e.cluster)
			if err != nil {
				return err
			}
			if e.attr&stablefs.AttrDirectory == 0 {
				if uint64(e.fileSize) > uint64(len(chain))*clusterSize {
					return stablefs.Errorf(stablefs.ErrVolumeNotFormatted,
						"%s.%s: size %d exceeds its %d clusters", e.name, e.ext, e.fileSize, len(chain))
				}
				continue
			}
			sub, err := DecodeDirectoryCluster(e.cluster, device, fat)
			if err != nil {
				return err
			}
			pending = append(pending, sub)
		}
	}
	return nil
}

func (f *FileSystem) RootDir() (stablefs.Directory, error) {
	dir := &Directory{
		device:     f.device,
		dirCluster: f.rootDir,
		fat:        f.fat,
	}

	return dir, nil
}

func (f *FileSystem) OEMName() (string, error) {
	return f.bs.OEMName, nil
}

func (f *FileSystem) VolumeLabel() (string, error) {
	return f.bs.VolumeLabel, nil
}

// FreeClusters returns the number of unallocated data clusters.
func (f *FileSystem) FreeClusters() uint32 {
	return f.fat.FreeCount()
}

func (f *FileSystem) Info() (map[string]any, error) {
	clusterSize := f.bs.ClusterSize()
	info := map[string]any{
		"oem_name":         f.bs.OEMName,
		"volume_label":     f.bs.VolumeLabel,
		"volume_id":        f.bs.VolumeID,
		"bytes_per_sector": f.bs.BytesPerSector,
		"cluster_size":     clusterSize,
		"cluster_count":    f.bs.ClusterCount(),
		"free_clusters":    f.fat.FreeCount(),
		"fat_count":        f.bs.NumFATs,
		"total_bytes":      uint64(f.bs.TotalSectors) * uint64(f.bs.BytesPerSector),
		"free_bytes":       uint64(f.fat.FreeCount()) * uint64(clusterSize),
		"root_cluster":     f.bs.RootCluster,
	}
	return info, nil
}
