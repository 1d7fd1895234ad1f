package fat

import (
	"encoding/binary"
	"strings"

	"github.com/rstms/stablefs"
)

const (
	SectorSize            = 512
	DefaultReservedCount  = 8
	DefaultFATCount       = 2
	DefaultClusterSectors = 8
	MediaFixed            = 0xF8

	bootSignature = 0xAA55
	extBootSig    = 0x29
	fsTypeFAT32   = "FAT32   "
)

// BootSector holds the fields of the FAT32 BIOS parameter block that
// this filesystem reads and writes. Everything else in sector 0 is
// fixed at format time.
type BootSector struct {
	OEMName           string
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	Media             uint8
	TotalSectors      uint32
	FATSize           uint32
	RootCluster       uint32
	VolumeID          uint32
	VolumeLabel       string
}

// Bytes encodes the boot sector as one BytesPerSector sized sector.
func (b *BootSector) Bytes() []byte {
	buf := make([]byte, b.BytesPerSector)
	le := binary.LittleEndian

	copy(buf[0:3], []byte{0xEB, 0x58, 0x90})
	copy(buf[3:11], padRight(b.OEMName, 8))
	le.PutUint16(buf[11:], b.BytesPerSector)
	buf[13] = b.SectorsPerCluster
	le.PutUint16(buf[14:], b.ReservedSectors)
	buf[16] = b.NumFATs
	// root entry count, 16 bit total sectors and 16 bit FAT size stay 0
	buf[21] = b.Media
	le.PutUint16(buf[24:], 32) // sectors per track
	le.PutUint16(buf[26:], 64) // heads
	le.PutUint32(buf[32:], b.TotalSectors)
	le.PutUint32(buf[36:], b.FATSize)
	le.PutUint32(buf[44:], b.RootCluster)
	le.PutUint16(buf[48:], 1) // fsinfo sector
	le.PutUint16(buf[50:], 6) // backup boot sector
	buf[64] = 0x80
	buf[66] = extBootSig
	le.PutUint32(buf[67:], b.VolumeID)
	copy(buf[71:82], padRight(b.VolumeLabel, 11))
	copy(buf[82:90], fsTypeFAT32)
	le.PutUint16(buf[510:], bootSignature)
	return buf
}

// DecodeBootSector reads and validates the boot sector at the start of
// device. Anything that does not look like a volume written by
// FormatSuperFloppy yields ErrVolumeNotFormatted.
func DecodeBootSector(device stablefs.StorageBlock) (*BootSector, error) {
	size := device.Size() * stablefs.PageSize
	if size < SectorSize {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "storage holds %d bytes", size)
	}
	buf, err := device.Read(0, SectorSize)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	if le.Uint16(buf[510:]) != bootSignature {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "missing boot signature")
	}
	if string(buf[82:90]) != fsTypeFAT32 || buf[66] != extBootSig {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "unsupported filesystem type %q", buf[82:90])
	}
	bs := &BootSector{
		OEMName:           strings.TrimRight(string(buf[3:11]), " "),
		BytesPerSector:    le.Uint16(buf[11:]),
		SectorsPerCluster: buf[13],
		ReservedSectors:   le.Uint16(buf[14:]),
		NumFATs:           buf[16],
		Media:             buf[21],
		TotalSectors:      le.Uint32(buf[32:]),
		FATSize:           le.Uint32(buf[36:]),
		RootCluster:       le.Uint32(buf[44:]),
		VolumeID:          le.Uint32(buf[67:]),
		VolumeLabel:       strings.TrimRight(string(buf[71:82]), " "),
	}
	if le.Uint16(buf[17:]) != 0 || le.Uint16(buf[19:]) != 0 || le.Uint16(buf[22:]) != 0 {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "FAT12/FAT16 fields set")
	}
	if err := bs.Validate(size); err != nil {
		return nil, err
	}
	return bs, nil
}

// Validate checks the geometry against itself and the device size.
func (b *BootSector) Validate(deviceBytes uint64) error {
	fail := func(format string, args ...interface{}) error {
		return stablefs.Errorf(stablefs.ErrVolumeNotFormatted, format, args...)
	}
	switch b.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return fail("bad sector size %d", b.BytesPerSector)
	}
	spc := b.SectorsPerCluster
	if spc == 0 || spc&(spc-1) != 0 {
		return fail("sectors per cluster %d is not a power of two", spc)
	}
	if b.ReservedSectors == 0 {
		return fail("no reserved sectors")
	}
	if b.NumFATs == 0 {
		return fail("no allocation tables")
	}
	if b.Media != MediaFixed && b.Media < 0xF0 {
		return fail("bad media descriptor %#x", b.Media)
	}
	if uint64(b.TotalSectors)*uint64(b.BytesPerSector) > deviceBytes {
		return fail("volume of %d sectors exceeds storage", b.TotalSectors)
	}
	if b.FATSize == 0 || b.FirstDataSector() >= b.TotalSectors {
		return fail("allocation tables do not fit")
	}
	count := b.ClusterCount()
	if count == 0 || count > clusterMaxCount {
		return fail("bad cluster count %d", count)
	}
	if uint64(b.FATSize)*uint64(b.BytesPerSector)/4 < uint64(count)+uint64(firstCluster) {
		return fail("allocation table too small for %d clusters", count)
	}
	if b.RootCluster < firstCluster || b.RootCluster >= count+firstCluster {
		return fail("root cluster %d out of range", b.RootCluster)
	}
	return nil
}

func (b *BootSector) ClusterSize() uint32 {
	return uint32(b.SectorsPerCluster) * uint32(b.BytesPerSector)
}

func (b *BootSector) FirstDataSector() uint32 {
	return uint32(b.ReservedSectors) + uint32(b.NumFATs)*b.FATSize
}

// ClusterCount is the number of data clusters, numbered from 2.
func (b *BootSector) ClusterCount() uint32 {
	return (b.TotalSectors - b.FirstDataSector()) / uint32(b.SectorsPerCluster)
}

// ClusterOffset is the byte offset of a data cluster on the device.
func (b *BootSector) ClusterOffset(cluster uint32) uint64 {
	sector := uint64(b.FirstDataSector()) + uint64(cluster-firstCluster)*uint64(b.SectorsPerCluster)
	return sector * uint64(b.BytesPerSector)
}

// FATOffset is the byte offset of allocation table copy n.
func (b *BootSector) FATOffset(n int) uint64 {
	sector := uint64(b.ReservedSectors) + uint64(n)*uint64(b.FATSize)
	return sector * uint64(b.BytesPerSector)
}

func padRight(s string, n int) []byte {
	buf := []byte(strings.Repeat(" ", n))
	copy(buf, s)
	return buf
}
