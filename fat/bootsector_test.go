package fat

import (
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
)

func testBootSector() *BootSector {
	return &BootSector{
		OEMName:           "STABLEFS",
		BytesPerSector:    SectorSize,
		SectorsPerCluster: DefaultClusterSectors,
		ReservedSectors:   DefaultReservedCount,
		NumFATs:           DefaultFATCount,
		Media:             MediaFixed,
		TotalSectors:      256,
		FATSize:           1,
		RootCluster:       2,
		VolumeID:          0x1234ABCD,
		VolumeLabel:       "DATA",
	}
}

func TestBootSectorRoundTrip(t *testing.T) {
	device := newDevice(t, 2)
	bs := testBootSector()
	require.Len(t, bs.Bytes(), SectorSize)
	require.Nil(t, device.Write(0, bs.Bytes()))

	got, err := DecodeBootSector(device)
	require.Nil(t, err)
	require.Equal(t, bs, got)
	require.Equal(t, uint32(4096), got.ClusterSize())
	require.Equal(t, uint32(10), got.FirstDataSector())
	require.Equal(t, uint32(30), got.ClusterCount())
	require.Equal(t, uint64(10*SectorSize), got.ClusterOffset(2))
	require.Equal(t, uint64(9*SectorSize), got.FATOffset(1))
}

func TestBootSectorValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*BootSector)
	}{
		{"sector size", func(b *BootSector) { b.BytesPerSector = 500 }},
		{"cluster sectors", func(b *BootSector) { b.SectorsPerCluster = 3 }},
		{"no cluster sectors", func(b *BootSector) { b.SectorsPerCluster = 0 }},
		{"reserved", func(b *BootSector) { b.ReservedSectors = 0 }},
		{"fat count", func(b *BootSector) { b.NumFATs = 0 }},
		{"media", func(b *BootSector) { b.Media = 0x12 }},
		{"too large", func(b *BootSector) { b.TotalSectors = 1 << 20 }},
		{"fat size", func(b *BootSector) { b.FATSize = 0 }},
		{"tables overflow", func(b *BootSector) { b.FATSize = 200 }},
		{"table too small", func(b *BootSector) { b.SectorsPerCluster = 1 }},
		{"root cluster", func(b *BootSector) { b.RootCluster = 1 }},
		{"root past end", func(b *BootSector) { b.RootCluster = 100 }},
	}

	require.Nil(t, testBootSector().Validate(2*stablefs.PageSize))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := testBootSector()
			tt.modify(bs)
			err := bs.Validate(2 * stablefs.PageSize)
			require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted), "got %v", err)
		})
	}
}

func TestDecodeBootSectorRejectsSignature(t *testing.T) {
	device := newDevice(t, 1)
	buf := testBootSector().Bytes()
	buf[510] = 0
	require.Nil(t, device.Write(0, buf))
	_, err := DecodeBootSector(device)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))

	buf = testBootSector().Bytes()
	copy(buf[82:90], "FAT16   ")
	require.Nil(t, device.Write(0, buf))
	_, err = DecodeBootSector(device)
	require.True(t, errors.Is(err, stablefs.ErrVolumeNotFormatted))
}
