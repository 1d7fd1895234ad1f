package fat

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/rstms/stablefs"
)

const (
	DirectoryEntrySize = 32

	entryEnd     = 0x00
	entryDeleted = 0xE5
	entryKanji   = 0x05
	lfnLast      = 0x40
	lfnOrdMask   = 0x1F
)

// DirectoryClusterEntry is one raw 32 byte record of a directory: either
// a short (8.3) entry or one piece of a long file name.
type DirectoryClusterEntry struct {
	name       string
	ext        string
	attr       stablefs.DirectoryAttr
	createTime time.Time
	accessTime time.Time
	writeTime  time.Time
	cluster    uint32
	fileSize   uint32
	deleted    bool

	// long name records only
	lfnOrd      uint8
	lfnChecksum uint8
	longName    []byte
}

func (e *DirectoryClusterEntry) IsLong() bool {
	return e.attr&stablefs.AttrLongName == stablefs.AttrLongName
}

func (e *DirectoryClusterEntry) IsVolumeId() bool {
	return !e.IsLong() && e.attr&stablefs.AttrVolumeId == stablefs.AttrVolumeId
}

func (e *DirectoryClusterEntry) isDot() bool {
	return e.name == "." || e.name == ".."
}

// rawShortName is the 11 byte, space padded name and extension.
func (e *DirectoryClusterEntry) rawShortName() []byte {
	raw := append(padRight(e.name, 8), padRight(e.ext, 3)...)
	if raw[0] == entryDeleted {
		raw[0] = entryKanji
	}
	return raw
}

// DecodeDirectoryClusterEntry decodes one 32 byte record.
func DecodeDirectoryClusterEntry(data []byte) (*DirectoryClusterEntry, error) {
	if len(data) < DirectoryEntrySize {
		return nil, stablefs.Errorf(stablefs.ErrVolumeNotFormatted, "short directory record")
	}
	le := binary.LittleEndian
	e := &DirectoryClusterEntry{
		attr:    stablefs.DirectoryAttr(data[11]),
		deleted: data[0] == entryDeleted,
	}
	if e.IsLong() {
		e.lfnOrd = data[0]
		e.lfnChecksum = data[13]
		e.longName = make([]byte, 0, lfnUnits*2)
		e.longName = append(e.longName, data[1:11]...)
		e.longName = append(e.longName, data[14:26]...)
		e.longName = append(e.longName, data[28:32]...)
		return e, nil
	}

	name := make([]byte, 8)
	copy(name, data[0:8])
	if name[0] == entryKanji {
		name[0] = entryDeleted
	}
	e.name = strings.TrimRight(string(name), " ")
	e.ext = strings.TrimRight(string(data[8:11]), " ")
	e.createTime = decodeDOSTime(le.Uint16(data[16:]), le.Uint16(data[14:]), data[13])
	e.accessTime = decodeDOSTime(le.Uint16(data[18:]), 0, 0)
	e.writeTime = decodeDOSTime(le.Uint16(data[24:]), le.Uint16(data[22:]), 0)
	e.cluster = uint32(le.Uint16(data[20:]))<<16 | uint32(le.Uint16(data[26:]))
	e.fileSize = le.Uint32(data[28:])
	return e, nil
}

// Bytes encodes the record.
func (e *DirectoryClusterEntry) Bytes() []byte {
	buf := make([]byte, DirectoryEntrySize)
	le := binary.LittleEndian
	if e.IsLong() {
		name := make([]byte, lfnUnits*2)
		copy(name, e.longName)
		buf[0] = e.lfnOrd
		copy(buf[1:11], name[0:10])
		buf[11] = byte(stablefs.AttrLongName)
		buf[13] = e.lfnChecksum
		copy(buf[14:26], name[10:22])
		copy(buf[28:32], name[22:26])
	} else {
		copy(buf[0:11], e.rawShortName())
		buf[11] = byte(e.attr)
		date, tm, tenths := encodeDOSTime(e.createTime)
		buf[13] = tenths
		le.PutUint16(buf[14:], tm)
		le.PutUint16(buf[16:], date)
		date, _, _ = encodeDOSTime(e.accessTime)
		le.PutUint16(buf[18:], date)
		le.PutUint16(buf[20:], uint16(e.cluster>>16))
		date, tm, _ = encodeDOSTime(e.writeTime)
		le.PutUint16(buf[22:], tm)
		le.PutUint16(buf[24:], date)
		le.PutUint16(buf[26:], uint16(e.cluster))
		le.PutUint32(buf[28:], e.fileSize)
	}
	if e.deleted {
		buf[0] = entryDeleted
	}
	return buf
}

// NewLongDirectoryClusterEntry builds the long name records for name,
// in on-disk order (highest ordinal first).
func NewLongDirectoryClusterEntry(name, shortName string) ([]*DirectoryClusterEntry, error) {
	raw, err := encodeLongName(name)
	if err != nil {
		return nil, stablefs.Errorf(stablefs.ErrPathFormat, "%q: %v", name, err)
	}
	units := len(raw) / 2
	if units%lfnUnits != 0 {
		raw = append(raw, 0, 0)
		for len(raw)%(lfnUnits*2) != 0 {
			raw = append(raw, 0xFF, 0xFF)
		}
	}
	count := len(raw) / (lfnUnits * 2)

	short := &DirectoryClusterEntry{}
	short.name, short.ext = splitShortName(shortName)
	checksum := shortNameChecksum(short.rawShortName())

	entries := make([]*DirectoryClusterEntry, count)
	for i := 0; i < count; i++ {
		ord := uint8(i + 1)
		if i == count-1 {
			ord |= lfnLast
		}
		entries[count-1-i] = &DirectoryClusterEntry{
			attr:        stablefs.AttrLongName,
			lfnOrd:      ord,
			lfnChecksum: checksum,
			longName:    raw[i*lfnUnits*2 : (i+1)*lfnUnits*2],
		}
	}
	return entries, nil
}

func splitShortName(shortName string) (string, string) {
	if shortName == "." || shortName == ".." {
		return shortName, ""
	}
	parts := strings.SplitN(shortName, ".", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// DirectoryCluster is a decoded directory: the records stored in the
// cluster chain that starts at startCluster.
type DirectoryCluster struct {
	startCluster uint32
	entries      []*DirectoryClusterEntry
}

// NewDirectoryCluster returns a fresh subdirectory holding only the
// "." and ".." records. A parent on the root directory is recorded as
// cluster 0.
func NewDirectoryCluster(start, parent uint32, createTime time.Time, rootCluster uint32) *DirectoryCluster {
	if parent == rootCluster {
		parent = 0
	}
	dot := &DirectoryClusterEntry{
		name:       ".",
		attr:       stablefs.AttrDirectory,
		cluster:    start,
		createTime: createTime,
		accessTime: createTime,
		writeTime:  createTime,
	}
	dotdot := &DirectoryClusterEntry{
		name:       "..",
		attr:       stablefs.AttrDirectory,
		cluster:    parent,
		createTime: createTime,
		accessTime: createTime,
		writeTime:  createTime,
	}
	return &DirectoryCluster{
		startCluster: start,
		entries:      []*DirectoryClusterEntry{dot, dotdot},
	}
}

// DecodeDirectoryCluster reads every record of the directory whose
// chain starts at startCluster, stopping at the end marker.
func DecodeDirectoryCluster(startCluster uint32, device stablefs.StorageBlock, fat *FAT) (*DirectoryCluster, error) {
	chain := &ClusterChain{device: device, fat: fat, startCluster: startCluster}
	data, err := chain.ReadAll()
	if err != nil {
		return nil, err
	}
	d := &DirectoryCluster{startCluster: startCluster}
	for off := 0; off+DirectoryEntrySize <= len(data); off += DirectoryEntrySize {
		if data[off] == entryEnd {
			break
		}
		entry, err := DecodeDirectoryClusterEntry(data[off : off+DirectoryEntrySize])
		if err != nil {
			return nil, err
		}
		d.entries = append(d.entries, entry)
	}
	return d, nil
}

// Bytes encodes the live records; deleted records are compacted away.
func (d *DirectoryCluster) Bytes() []byte {
	buf := make([]byte, 0, len(d.entries)*DirectoryEntrySize)
	for _, e := range d.entries {
		if e.deleted {
			continue
		}
		buf = append(buf, e.Bytes()...)
	}
	return buf
}

// WriteToDevice resizes the directory's chain to fit its records and
// writes them, zero filling the rest of the chain.
func (d *DirectoryCluster) WriteToDevice(device stablefs.StorageBlock, fat *FAT) error {
	data := d.Bytes()
	chain := &ClusterChain{device: device, fat: fat, startCluster: d.startCluster}
	if err := chain.Resize(uint64(len(data))); err != nil {
		return err
	}
	capacity, err := chain.Capacity()
	if err != nil {
		return err
	}
	padded := make([]byte, capacity)
	copy(padded, data)
	_, err = chain.WriteAt(padded, 0)
	return err
}
