package vfs

import (
	"log"
	"sync"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/fat"
)

// ConfirmFormat is the only token InitVolume accepts.
const ConfirmFormat = "CONFIRM_FORMAT"

// DefaultFormatPages is the size InitVolume grows storage to.
const DefaultFormatPages = 256

const (
	formatPrompt = "initVolume erases every file on the volume; call it again with the token " + ConfirmFormat + " to proceed"
	formatDone   = "volume formatted"
)

type Config struct {
	FormatPages       uint64
	Label             string
	OEMName           string
	SectorsPerCluster uint8
}

// Service owns the storage and the mounted volume. Every operation
// holds the lock for its whole duration.
type Service struct {
	mu       sync.Mutex
	device   stablefs.StorageBlock
	config   Config
	fs       *fat.FileSystem
	mountErr error
}

// New mounts the volume on device. A failed mount leaves the service
// usable: operations report ErrVolumeNotFormatted until InitVolume.
func New(device stablefs.StorageBlock, config Config) *Service {
	if config.FormatPages == 0 {
		config.FormatPages = DefaultFormatPages
	}
	s := &Service{device: device, config: config}
	s.mount()
	return s
}

func (s *Service) mount() {
	fs, err := fat.New(s.device)
	if err != nil {
		s.fs = nil
		s.mountErr = err
		log.Printf("mount: %v\n", err)
		return
	}
	s.fs = fs
	s.mountErr = nil
	label, _ := fs.VolumeLabel()
	log.Printf("mount: %q, %d free clusters\n", label, fs.FreeClusters())
}

// Mounted reports whether a volume is available.
func (s *Service) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs != nil
}

// InitVolume formats the storage when token is ConfirmFormat. Any other
// token changes nothing and returns a prompt instead.
func (s *Service) InitVolume(token string) (string, error) {
	if token != ConfirmFormat {
		return formatPrompt, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pages := s.device.Size(); pages < s.config.FormatPages {
		if _, err := s.device.Grow(s.config.FormatPages - pages); err != nil {
			return "", err
		}
		log.Printf("grow: %d -> %d pages\n", pages, s.config.FormatPages)
	}
	config := &fat.SuperFloppyConfig{
		Label:             s.config.Label,
		OEMName:           s.config.OEMName,
		SectorsPerCluster: s.config.SectorsPerCluster,
	}
	if err := fat.FormatSuperFloppy(s.device, config); err != nil {
		return "", err
	}
	s.mount()
	if s.mountErr != nil {
		return "", s.mountErr
	}
	return formatDone, nil
}

func (s *Service) root() (stablefs.Directory, error) {
	if s.fs == nil {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "no volume mounted: %v", s.mountErr)
	}
	return s.fs.RootDir()
}

// Close releases the storage.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs = nil
	s.mountErr = stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "storage closed")
	return s.device.Close()
}
