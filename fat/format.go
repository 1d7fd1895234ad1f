package fat

import (
	"log"

	"github.com/google/uuid"

	"github.com/rstms/stablefs"
)

// SuperFloppyConfig describes a volume without a partition table: the
// boot sector sits at offset 0 of the device.
type SuperFloppyConfig struct {
	Label             string
	OEMName           string
	SectorsPerCluster uint8

	// Size is the number of bytes to format; zero uses the whole device.
	Size uint64
}

// FormatSuperFloppy writes a fresh boot sector, empty allocation tables
// and an empty root directory. Everything previously reachable on the
// device is lost.
func FormatSuperFloppy(device stablefs.StorageBlock, config *SuperFloppyConfig) error {
	available := device.Size() * stablefs.PageSize
	size := config.Size
	if size == 0 || size > available {
		size = available
	}
	spc := config.SectorsPerCluster
	if spc == 0 {
		spc = DefaultClusterSectors
	}
	oem := config.OEMName
	if oem == "" {
		oem = "STABLEFS"
	}
	label := config.Label
	if label == "" {
		label = "NO NAME"
	}

	bs := &BootSector{
		OEMName:           oem,
		BytesPerSector:    SectorSize,
		SectorsPerCluster: spc,
		ReservedSectors:   DefaultReservedCount,
		NumFATs:           DefaultFATCount,
		Media:             MediaFixed,
		TotalSectors:      uint32(size / SectorSize),
		RootCluster:       firstCluster,
		VolumeID:          uuid.New().ID(),
		VolumeLabel:       label,
	}

	// Upper bound: the tables are sized as if they consumed no space.
	if uint64(bs.TotalSectors) <= uint64(bs.ReservedSectors) {
		return stablefs.Errorf(stablefs.ErrStorageExhausted, "%d bytes is too small for a volume", size)
	}
	dataSectors := uint64(bs.TotalSectors) - uint64(bs.ReservedSectors)
	clusters := dataSectors/uint64(spc) + uint64(firstCluster)
	bs.FATSize = uint32((clusters*4 + SectorSize - 1) / SectorSize)

	if err := bs.Validate(available); err != nil {
		return stablefs.Errorf(stablefs.ErrStorageExhausted, "%d bytes cannot hold a volume: %v", size, err)
	}

	// Clear the reserved area and the tables before writing them.
	meta := make([]byte, uint64(bs.FirstDataSector())*SectorSize)
	if err := device.Write(0, meta); err != nil {
		return err
	}
	if err := device.Write(0, bs.Bytes()); err != nil {
		return err
	}

	fat := NewFAT(bs)
	if err := fat.WriteToDevice(device); err != nil {
		return err
	}

	root := &DirectoryCluster{startCluster: bs.RootCluster}
	if err := root.WriteToDevice(device, fat); err != nil {
		return err
	}

	log.Printf("format: %q %d clusters of %d bytes, serial %08X\n",
		bs.VolumeLabel, bs.ClusterCount(), bs.ClusterSize(), bs.VolumeID)
	return nil
}
