package fat

import (
	"strings"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"

	"github.com/rstms/stablefs"
)

func TestGenerateShortName(t *testing.T) {
	tests := []struct {
		name     string
		used     []string
		expected string
	}{
		{"README.TXT", nil, "README.TXT"},
		{"readme.txt", nil, "README.TXT"},
		{"logs", nil, "LOGS"},
		{"logs", []string{"LOGS"}, "LOGS~1"},
		{"a very long name.txt", nil, "AVERYL~1.TXT"},
		{"a very long name.txt", []string{"averyl~1.txt"}, "AVERYL~2.TXT"},
		{"archive.tar.gz", nil, "ARCHIV~1.GZ"},
		{".hidden", nil, "HIDDEN~1"},
		{"über", nil, "_BER~1"},
		{"data.json", nil, "DATA~1.JSO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generateShortName(tt.name, tt.used)
			require.Nil(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"a", "notes.txt", "with space", "ünïcödé", strings.Repeat("x", 255)}
	for _, name := range valid {
		require.Nil(t, validateName(name), name)
	}

	invalid := []string{"", ".", "..", "a/b", "a\\b", "a:b", "a*", "q?", "\"x\"", "<x>", "a|b", "tab\t", "bad\xff", strings.Repeat("x", 256)}
	for _, name := range invalid {
		err := validateName(name)
		require.True(t, errors.Is(err, stablefs.ErrPathFormat), "%q", name)
	}
}

func TestLongNameEncoding(t *testing.T) {
	for _, name := range []string{"short", "exactly13char", "a name that spans several records.txt", "日本語のファイル"} {
		raw, err := encodeLongName(name)
		require.Nil(t, err)
		got, err := decodeLongName(append(raw, 0, 0, 0xFF, 0xFF))
		require.Nil(t, err)
		require.Equal(t, name, got)
	}
}

func TestLongDirectoryClusterEntries(t *testing.T) {
	name := "a name that spans several records.txt"
	entries, err := NewLongDirectoryClusterEntry(name, "ANAMET~1.TXT")
	require.Nil(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, uint8(3|lfnLast), entries[0].lfnOrd)
	require.Equal(t, uint8(1), entries[2].lfnOrd)

	short := &DirectoryClusterEntry{}
	short.name, short.ext = splitShortName("ANAMET~1.TXT")
	sum := shortNameChecksum(short.rawShortName())

	var raw []byte
	for i := len(entries) - 1; i >= 0; i-- {
		require.True(t, entries[i].IsLong())
		require.Equal(t, sum, entries[i].lfnChecksum)
		decoded, err := DecodeDirectoryClusterEntry(entries[i].Bytes())
		require.Nil(t, err)
		require.Equal(t, entries[i].lfnOrd, decoded.lfnOrd)
		raw = append(raw, decoded.longName...)
	}
	got, err := decodeLongName(raw)
	require.Nil(t, err)
	require.Equal(t, name, got)
}

func TestFoldName(t *testing.T) {
	require.True(t, sameName("Logs", "LOGS"))
	require.True(t, sameName("Äpfel.TXT", "äpfel.txt"))
	require.False(t, sameName("log", "logs"))
}
