package fat

import (
	"encoding/binary"

	"github.com/rstms/stablefs"
)

const (
	firstCluster    uint32 = 2
	clusterFree     uint32 = 0
	clusterBad      uint32 = 0x0FFFFFF7
	clusterEOCMin   uint32 = 0x0FFFFFF8
	clusterEOC      uint32 = 0x0FFFFFFF
	clusterMask     uint32 = 0x0FFFFFFF
	clusterMaxCount uint32 = 0x0FFFFFF5
)

// FAT is the in-memory copy of the allocation table. Every change is
// made here first and reaches the device through WriteToDevice, which
// rewrites all copies.
type FAT struct {
	bs      *BootSector
	entries []uint32
	hint    uint32
}

// NewFAT returns an empty table for bs with the reserved entries and
// the root directory's single cluster filled in.
func NewFAT(bs *BootSector) *FAT {
	f := &FAT{
		bs:      bs,
		entries: make([]uint32, bs.ClusterCount()+firstCluster),
		hint:    firstCluster,
	}
	f.entries[0] = 0x0FFFFF00 | uint32(bs.Media)
	f.entries[1] = clusterEOC
	f.entries[bs.RootCluster] = clusterEOC
	return f
}

// DecodeFAT reads allocation table copy n and validates it.
func DecodeFAT(device stablefs.StorageBlock, bs *BootSector, n int) (*FAT, error) {
	count := bs.ClusterCount() + firstCluster
	buf, err := device.Read(bs.FATOffset(n), int(count)*4)
	if err != nil {
		return nil, err
	}
	f := &FAT{
		bs:      bs,
		entries: make([]uint32, count),
		hint:    firstCluster,
	}
	for i := range f.entries {
		f.entries[i] = binary.LittleEndian.Uint32(buf[i*4:]) & clusterMask
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the reserved entries, that every link points at a
// data cluster, and that no cluster is linked from two places.
func (f *FAT) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return stablefs.Errorf(stablefs.ErrVolumeNotFormatted, format, args...)
	}
	if f.entries[0] != 0x0FFFFF00|uint32(f.bs.Media) {
		return fail("bad media entry %#x", f.entries[0])
	}
	if f.entries[1] < clusterEOCMin {
		return fail("bad reserved entry %#x", f.entries[1])
	}
	limit := uint32(len(f.entries))
	linked := make([]bool, limit)
	for c := firstCluster; c < limit; c++ {
		next := f.entries[c]
		if next == clusterFree || next == clusterBad || next >= clusterEOCMin {
			continue
		}
		if next < firstCluster || next >= limit || next == c {
			return fail("cluster %d links to invalid cluster %d", c, next)
		}
		if linked[next] {
			return fail("cluster %d is cross-linked", next)
		}
		linked[next] = true
	}
	root := f.entries[f.bs.RootCluster]
	if root == clusterFree || root == clusterBad {
		return fail("root cluster %d is not allocated", f.bs.RootCluster)
	}
	if linked[f.bs.RootCluster] {
		return fail("root cluster %d is inside another chain", f.bs.RootCluster)
	}
	return nil
}

// Bytes encodes one table copy, padded to FATSize sectors.
func (f *FAT) Bytes() []byte {
	buf := make([]byte, uint64(f.bs.FATSize)*uint64(f.bs.BytesPerSector))
	for i, v := range f.entries {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// WriteToDevice writes every copy of the table.
func (f *FAT) WriteToDevice(device stablefs.StorageBlock) error {
	buf := f.Bytes()
	for n := 0; n < int(f.bs.NumFATs); n++ {
		if err := device.Write(f.bs.FATOffset(n), buf); err != nil {
			return err
		}
	}
	return nil
}

// FreeCount returns the number of unallocated clusters.
func (f *FAT) FreeCount() uint32 {
	var free uint32
	for c := firstCluster; c < uint32(len(f.entries)); c++ {
		if f.entries[c] == clusterFree {
			free++
		}
	}
	return free
}

func (f *FAT) findFree() (uint32, bool) {
	limit := uint32(len(f.entries))
	for i := uint32(0); i < limit-firstCluster; i++ {
		c := firstCluster + (f.hint-firstCluster+i)%(limit-firstCluster)
		if f.entries[c] == clusterFree {
			f.hint = c
			return c, true
		}
	}
	return 0, false
}

// AllocChain allocates a one-cluster chain and returns its start.
func (f *FAT) AllocChain() (uint32, error) {
	c, ok := f.findFree()
	if !ok {
		return 0, stablefs.Errorf(stablefs.ErrStorageExhausted, "no free clusters")
	}
	f.entries[c] = clusterEOC
	return c, nil
}

// Chain returns the clusters of the chain starting at start, in order.
func (f *FAT) Chain(start uint32) ([]uint32, error) {
	limit := uint32(len(f.entries))
	chain := []uint32{}
	c := start
	for {
		if c < firstCluster || c >= limit {
			return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "chain from %d reaches invalid cluster %d", start, c)
		}
		if f.entries[c] == clusterFree || f.entries[c] == clusterBad {
			return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "chain from %d reaches unallocated cluster %d", start, c)
		}
		chain = append(chain, c)
		if uint32(len(chain)) > limit {
			return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "chain from %d loops", start)
		}
		next := f.entries[c]
		if next >= clusterEOCMin {
			return chain, nil
		}
		c = next
	}
}

// ResizeChain makes the chain starting at start exactly count clusters
// long (count is at least 1) and returns the new cluster list along with
// the clusters that were added. Nothing changes when there are not
// enough free clusters.
func (f *FAT) ResizeChain(start uint32, count int) (chain []uint32, added []uint32, err error) {
	if count < 1 {
		count = 1
	}
	chain, err = f.Chain(start)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case count < len(chain):
		for _, c := range chain[count:] {
			f.entries[c] = clusterFree
		}
		chain = chain[:count]
		f.entries[chain[count-1]] = clusterEOC
	case count > len(chain):
		need := uint32(count - len(chain))
		if need > f.FreeCount() {
			return nil, nil, stablefs.Errorf(stablefs.ErrStorageExhausted,
				"need %d clusters, %d free", need, f.FreeCount())
		}
		last := chain[len(chain)-1]
		for len(chain) < count {
			c, _ := f.findFree()
			f.entries[c] = clusterEOC
			f.entries[last] = c
			chain = append(chain, c)
			added = append(added, c)
			last = c
		}
	}
	return chain, added, nil
}

// FreeChain releases every cluster of the chain starting at start.
func (f *FAT) FreeChain(start uint32) error {
	chain, err := f.Chain(start)
	if err != nil {
		return err
	}
	for _, c := range chain {
		f.entries[c] = clusterFree
	}
	return nil
}
