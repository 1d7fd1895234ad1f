package fat

import (
	"github.com/rstms/stablefs"
)

// ClusterChain gives byte level access to the data clusters linked
// from startCluster.
type ClusterChain struct {
	device       stablefs.StorageBlock
	fat          *FAT
	startCluster uint32
}

func (c *ClusterChain) clusterSize() uint64 {
	return uint64(c.fat.bs.ClusterSize())
}

// Capacity is the byte length of all clusters in the chain.
func (c *ClusterChain) Capacity() (uint64, error) {
	clusters, err := c.fat.Chain(c.startCluster)
	if err != nil {
		return 0, err
	}
	return uint64(len(clusters)) * c.clusterSize(), nil
}

// ReadAll returns the contents of every cluster in the chain.
func (c *ClusterChain) ReadAll() ([]byte, error) {
	capacity, err := c.Capacity()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, capacity)
	_, err = c.ReadAt(buf, 0)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// span calls fn for each cluster-local piece of [off, off+n), which
// must already lie inside the chain.
func (c *ClusterChain) span(off uint64, n int, fn func(device uint64, start, end int) error) error {
	clusters, err := c.fat.Chain(c.startCluster)
	if err != nil {
		return err
	}
	size := c.clusterSize()
	if off+uint64(n) > uint64(len(clusters))*size {
		return stablefs.Errorf(stablefs.ErrStorageExhausted,
			"access of %d bytes at %d past chain of %d clusters", n, off, len(clusters))
	}
	pos := 0
	for pos < n {
		abs := off + uint64(pos)
		index := abs / size
		within := abs % size
		count := int(size - within)
		if count > n-pos {
			count = n - pos
		}
		addr := c.fat.bs.ClusterOffset(clusters[index]) + within
		if err := fn(addr, pos, pos+count); err != nil {
			return err
		}
		pos += count
	}
	return nil
}

// ReadAt fills p from the chain starting at byte off.
func (c *ClusterChain) ReadAt(p []byte, off int64) (int, error) {
	err := c.span(uint64(off), len(p), func(addr uint64, start, end int) error {
		data, err := c.device.Read(addr, end-start)
		if err != nil {
			return err
		}
		copy(p[start:end], data)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteAt writes p at byte off, growing the chain first when needed.
func (c *ClusterChain) WriteAt(p []byte, off int64) (int, error) {
	need := uint64(off) + uint64(len(p))
	capacity, err := c.Capacity()
	if err != nil {
		return 0, err
	}
	if need > capacity {
		if err := c.Resize(need); err != nil {
			return 0, err
		}
	}
	err = c.span(uint64(off), len(p), func(addr uint64, start, end int) error {
		return c.device.Write(addr, p[start:end])
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Resize sets the chain to the fewest clusters holding size bytes (at
// least one). Added clusters are zeroed and the allocation tables are
// written whenever the chain changes.
func (c *ClusterChain) Resize(size uint64) error {
	clusterSize := c.clusterSize()
	count := (size + clusterSize - 1) / clusterSize
	if count > uint64(len(c.fat.entries)) {
		return stablefs.Errorf(stablefs.ErrStorageExhausted, "%d bytes exceed the volume", size)
	}
	before, err := c.fat.Chain(c.startCluster)
	if err != nil {
		return err
	}
	chain, added, err := c.fat.ResizeChain(c.startCluster, int(count))
	if err != nil {
		return err
	}
	zero := make([]byte, clusterSize)
	for _, cluster := range added {
		if err := c.device.Write(c.fat.bs.ClusterOffset(cluster), zero); err != nil {
			return err
		}
	}
	if len(chain) != len(before) {
		return c.fat.WriteToDevice(c.device)
	}
	return nil
}
