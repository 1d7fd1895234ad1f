package fat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"

	"github.com/rstms/stablefs"
)

const (
	maxNameUnits  = 255
	lfnUnits      = 13
	invalidInName = "/\\:*?\"<>|"
	shortSpecial  = "!#$%&'()-@^_`{}~"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// foldName maps a name to its case-insensitive comparison key.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func sameName(a, b string) bool {
	return foldName(a) == foldName(b)
}

// encodeLongName returns the UTF-16LE bytes of name.
func encodeLongName(name string) ([]byte, error) {
	s, err := utf16le.NewEncoder().String(name)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// decodeLongName converts UTF-16LE bytes, stopping at a NUL unit.
func decodeLongName(raw []byte) (string, error) {
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			raw = raw[:i]
			break
		}
	}
	buf, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// validateName rejects names that cannot be stored as a directory entry.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return stablefs.Errorf(stablefs.ErrPathFormat, "invalid entry name %q", name)
	}
	if !utf8.ValidString(name) {
		return stablefs.Errorf(stablefs.ErrPathFormat, "entry name is not UTF-8")
	}
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidInName, r) {
			return stablefs.Errorf(stablefs.ErrPathFormat, "entry name %q contains %q", name, r)
		}
	}
	raw, err := encodeLongName(name)
	if err != nil {
		return stablefs.Errorf(stablefs.ErrPathFormat, "entry name %q: %v", name, err)
	}
	if len(raw)/2 > maxNameUnits {
		return stablefs.Errorf(stablefs.ErrPathFormat, "entry name longer than %d characters", maxNameUnits)
	}
	return nil
}

// shortChars upper-cases s and reduces it to characters legal in an
// 8.3 name, reporting whether anything was dropped or replaced.
func shortChars(s string) (string, bool) {
	var b strings.Builder
	lossy := false
	for _, r := range strings.ToUpper(s) {
		switch {
		case r == ' ' || r == '.':
			lossy = true
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', strings.ContainsRune(shortSpecial, r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
			lossy = true
		}
	}
	return b.String(), lossy
}

func joinShortName(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// generateShortName picks an 8.3 alias for name that is not in
// usedNames, falling back to a numeric ~N tail when the plain
// conversion loses information or collides.
func generateShortName(name string, usedNames []string) (string, error) {
	if name == "." || name == ".." {
		return name, nil
	}
	used := make(map[string]bool, len(usedNames))
	for _, n := range usedNames {
		used[strings.ToUpper(n)] = true
	}

	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i+1:]
	}
	base, lossyBase := shortChars(base)
	ext, lossyExt := shortChars(ext)
	lossy := lossyBase || lossyExt
	if len(base) > 8 {
		base = base[:8]
		lossy = true
	}
	if len(ext) > 3 {
		ext = ext[:3]
		lossy = true
	}
	if base == "" {
		base = "_"
		lossy = true
	}

	candidate := joinShortName(base, ext)
	if !lossy && !used[candidate] {
		return candidate, nil
	}
	for n := 1; n < 1000000; n++ {
		tail := fmt.Sprintf("~%d", n)
		b := base
		if len(b)+len(tail) > 8 {
			b = b[:8-len(tail)]
		}
		candidate = joinShortName(b+tail, ext)
		if !used[candidate] {
			return candidate, nil
		}
	}
	return "", stablefs.Errorf(stablefs.ErrStorageExhausted, "no short name left for %q", name)
}

// shortNameChecksum is the checksum long name entries carry for the
// 11 byte space padded short name they belong to.
func shortNameChecksum(raw []byte) uint8 {
	var sum uint8
	for _, c := range raw {
		sum = (sum&1)<<7 + sum>>1 + c
	}
	return sum
}
