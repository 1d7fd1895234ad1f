package fat

import (
	"strings"
	"time"

	"github.com/rstms/stablefs"
)

// Directory implements stablefs.Directory and is used to interface with
// a directory on a FAT filesystem.
type Directory struct {
	device     stablefs.StorageBlock
	dirCluster *DirectoryCluster
	fat        *FAT
}

// ensure Directory implements stablefs.Directory
var _ stablefs.Directory = (*Directory)(nil)

// DirectoryEntry implements stablefs.DirectoryEntry and represents a
// single file/folder within a directory in a FAT filesystem. Note that
// there may be more than one underlying directory entry data structure
// on the disk to account for long filenames.
type DirectoryEntry struct {
	dir        *Directory
	lfnEntries []*DirectoryClusterEntry
	entry      *DirectoryClusterEntry

	name string
}

// ensure DirectoryEntry implements stablefs.DirectoryEntry
var _ stablefs.DirectoryEntry = (*DirectoryEntry)(nil)

// DecodeDirectoryEntry takes a list of entries, decodes the next full
// DirectoryEntry, and returns the newly created entry, the remaining
// entries, and an error, if there was one.
func DecodeDirectoryEntry(d *Directory, entries []*DirectoryClusterEntry) (*DirectoryEntry, []*DirectoryClusterEntry, error) {
	var lfnEntries []*DirectoryClusterEntry
	var entry *DirectoryClusterEntry
	var name string

	// Skip all the deleted entries
	for len(entries) > 0 && entries[0].deleted {
		entries = entries[1:]
	}

	// Skip the volume ID
	if len(entries) > 0 && entries[0].IsVolumeId() {
		entries = entries[1:]
	}

	if len(entries) == 0 {
		return nil, entries, nil
	}

	// Collect the long name pieces that precede the short entry.
	for len(entries) > 0 && entries[0].IsLong() && !entries[0].deleted {
		lfnEntries = append(lfnEntries, entries[0])
		entries = entries[1:]
	}

	if len(entries) == 0 || entries[0].IsLong() || entries[0].IsVolumeId() {
		// orphaned long name pieces
		return nil, entries, nil
	}

	// Get the short entry
	entry = entries[0]
	entries = entries[1:]

	// If the short entry is deleted, ignore everything
	if entry.deleted {
		return nil, entries, nil
	}

	if len(lfnEntries) > 0 {
		checksum := shortNameChecksum(entry.rawShortName())
		raw := make([]byte, 0, lfnUnits*2*len(lfnEntries))
		for i := len(lfnEntries) - 1; i >= 0; i-- {
			if lfnEntries[i].lfnChecksum != checksum {
				raw = nil
				break
			}
			raw = append(raw, lfnEntries[i].longName...)
		}
		if raw != nil {
			decoded, err := decodeLongName(raw)
			if err == nil {
				name = decoded
			}
		}
		if name == "" {
			lfnEntries = nil
		}
	}

	if name == "" {
		name = joinShortName(entry.name, entry.ext)
	}

	result := &DirectoryEntry{
		dir:        d,
		lfnEntries: lfnEntries,
		entry:      entry,
		name:       name,
	}

	return result, entries, nil
}

func (d *DirectoryEntry) Dir() (stablefs.Directory, error) {
	if !d.IsDir() {
		return nil, stablefs.Errorf(stablefs.ErrNotADirectory, "%s", d.name)
	}

	dirCluster, err := DecodeDirectoryCluster(
		d.entry.cluster, d.dir.device, d.dir.fat)
	if err != nil {
		return nil, err
	}

	result := &Directory{
		device:     d.dir.device,
		dirCluster: dirCluster,
		fat:        d.dir.fat,
	}

	return result, nil
}

func (d *DirectoryEntry) File() (stablefs.File, error) {
	if d.IsDir() {
		return nil, stablefs.Errorf(stablefs.ErrIsADirectory, "%s", d.name)
	}

	result := &File{
		chain: &ClusterChain{
			device:       d.dir.device,
			fat:          d.dir.fat,
			startCluster: d.entry.cluster,
		},
		dir:   d.dir,
		entry: d.entry,
	}

	return result, nil
}

func (d *DirectoryEntry) IsDir() bool {
	return (d.entry.attr & stablefs.AttrDirectory) == stablefs.AttrDirectory
}

func (d *DirectoryEntry) IsVolumeId() bool {
	return d.entry.IsVolumeId()
}

func (d *DirectoryEntry) Name() string {
	return d.name
}

func (d *DirectoryEntry) Size() uint64 {
	return uint64(d.entry.fileSize)
}

func (d *DirectoryEntry) ModTime() time.Time {
	return d.entry.writeTime
}

func (d *DirectoryEntry) Attr() stablefs.DirectoryAttr {
	return d.entry.attr
}

func (d *DirectoryEntry) ShortName() string {
	return joinShortName(d.entry.name, d.entry.ext)
}

func (d *Directory) AddDirectory(name string) (stablefs.DirectoryEntry, error) {
	entry, err := d.addEntry(name, stablefs.AttrDirectory)
	if err != nil {
		return nil, err
	}

	// Create the new directory cluster
	newDirCluster := NewDirectoryCluster(
		entry.entry.cluster, d.dirCluster.startCluster, entry.entry.createTime, d.fat.bs.RootCluster)

	if err := newDirCluster.WriteToDevice(d.device, d.fat); err != nil {
		return nil, err
	}

	return entry, nil
}

func (d *Directory) AddFile(name string) (stablefs.DirectoryEntry, error) {
	return d.addEntry(name, stablefs.AttrArchive)
}

func (d *Directory) entries() []*DirectoryEntry {
	entries := d.dirCluster.entries
	result := make([]*DirectoryEntry, 0, len(entries)/2)
	for len(entries) > 0 {
		var entry *DirectoryEntry
		entry, entries, _ = DecodeDirectoryEntry(d, entries)
		if entry != nil && !entry.entry.isDot() {
			result = append(result, entry)
		}
	}
	return result
}

func (d *Directory) Entries() []stablefs.DirectoryEntry {
	entries := d.entries()
	result := make([]stablefs.DirectoryEntry, len(entries))
	for i, entry := range entries {
		result[i] = entry
	}
	return result
}

func (d *Directory) entry(name string) *DirectoryEntry {
	key := foldName(name)
	for _, entry := range d.entries() {
		if foldName(entry.name) == key {
			return entry
		}
	}
	return nil
}

func (d *Directory) Entry(name string) stablefs.DirectoryEntry {
	entry := d.entry(name)
	if entry == nil {
		return nil
	}
	return entry
}

// OpenDir walks path one segment at a time below d. Empty segments are
// skipped, so an empty path returns d itself.
func (d *Directory) OpenDir(path string) (stablefs.Directory, error) {
	var dir stablefs.Directory = d
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		entry := dir.Entry(name)
		if entry == nil {
			return nil, stablefs.PathErrorf(stablefs.ErrEntryNotFound, path, "%s", name)
		}
		if !entry.IsDir() {
			return nil, stablefs.PathErrorf(stablefs.ErrNotADirectory, path, "%s", name)
		}
		next, err := entry.Dir()
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}

// Remove deletes the named entry and frees its clusters. A directory
// is only removed when it holds nothing besides "." and "..".
func (d *Directory) Remove(name string) error {
	entry := d.entry(name)
	if entry == nil {
		return stablefs.Errorf(stablefs.ErrEntryNotFound, "%s", name)
	}
	if entry.IsDir() {
		sub, err := entry.Dir()
		if err != nil {
			return err
		}
		if len(sub.Entries()) > 0 {
			return stablefs.Errorf(stablefs.ErrDirectoryNotEmpty, "%s", name)
		}
	}

	drop := make(map[*DirectoryClusterEntry]bool, len(entry.lfnEntries)+1)
	drop[entry.entry] = true
	for _, lfn := range entry.lfnEntries {
		drop[lfn] = true
	}
	previous := d.dirCluster.entries
	kept := make([]*DirectoryClusterEntry, 0, len(previous))
	for _, e := range previous {
		if !drop[e] {
			kept = append(kept, e)
		}
	}
	d.dirCluster.entries = kept

	// Unlink first so a failure part way leaks clusters instead of
	// leaving an entry that points at freed ones.
	if err := d.dirCluster.WriteToDevice(d.device, d.fat); err != nil {
		d.dirCluster.entries = previous
		return err
	}
	if err := d.fat.FreeChain(entry.entry.cluster); err != nil {
		return err
	}
	return d.fat.WriteToDevice(d.device)
}

func (d *Directory) addEntry(name string, attr stablefs.DirectoryAttr) (*DirectoryEntry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	entries := d.entries()
	usedNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if sameName(entry.Name(), name) {
			return nil, stablefs.Errorf(stablefs.ErrEntryAlreadyExists, "%s", name)
		}

		// Add it to the list of used names
		usedNames = append(usedNames, entry.ShortName())
	}

	shortName, err := generateShortName(name, usedNames)
	if err != nil {
		return nil, err
	}

	var lfnEntries []*DirectoryClusterEntry
	if shortName != name {
		lfnEntries, err = NewLongDirectoryClusterEntry(name, shortName)
		if err != nil {
			return nil, err
		}
	}

	// Allocate space for a cluster
	startCluster, err := d.fat.AllocChain()
	if err != nil {
		return nil, err
	}

	createTime := time.Now()

	shortEntry := new(DirectoryClusterEntry)
	shortEntry.attr = attr
	shortEntry.name, shortEntry.ext = splitShortName(shortName)
	shortEntry.cluster = startCluster
	shortEntry.accessTime = createTime
	shortEntry.createTime = createTime
	shortEntry.writeTime = createTime

	// Write the new FAT out
	if err := d.fat.WriteToDevice(d.device); err != nil {
		return nil, err
	}

	// Write the entries out in this directory
	before := len(d.dirCluster.entries)
	if lfnEntries != nil {
		d.dirCluster.entries = append(d.dirCluster.entries, lfnEntries...)
	}
	d.dirCluster.entries = append(d.dirCluster.entries, shortEntry)

	if err := d.dirCluster.WriteToDevice(d.device, d.fat); err != nil {
		d.dirCluster.entries = d.dirCluster.entries[:before]
		if d.fat.FreeChain(startCluster) == nil {
			d.fat.WriteToDevice(d.device)
		}
		return nil, err
	}

	newEntry := &DirectoryEntry{
		dir:        d,
		lfnEntries: lfnEntries,
		entry:      shortEntry,
		name:       name,
	}

	return newEntry, nil
}
