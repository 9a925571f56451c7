package check_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/influxdata/pepclean"
	"github.com/influxdata/pepclean/check"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTailCheck_Detect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		exp   pepclean.Verdict
	}{
		{name: "empty", input: "", exp: pepclean.NoIssue},
		{name: "one byte", input: "x", exp: pepclean.NoIssue},
		{name: "lone line break", input: "\n", exp: pepclean.HasIssue},
		{name: "single trailing break", input: "clean\n", exp: pepclean.NoIssue},
		{name: "no trailing break", input: "clean", exp: pepclean.NoIssue},
		{name: "two breaks", input: "\n\n", exp: pepclean.HasIssue},
		{name: "double trailing break", input: "x\n\n", exp: pepclean.HasIssue},
		{name: "many trailing breaks", input: "x\n\n\n\n", exp: pepclean.HasIssue},
		{name: "inner blank lines", input: "a\n\n\nb\n", exp: pepclean.NoIssue},
		{name: "crlf is not a double break", input: "x\r\n\r\n", exp: pepclean.NoIssue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := MustWriteFile(t, tt.input)
			got, err := MustDetect(t, check.TailCheck{}, path)
			require.NoError(t, err)
			require.Equal(t, tt.exp, got)
		})
	}
}

func TestTailCheck_DetectReaderError(t *testing.T) {
	f, err := os.Open(MustWriteFile(t, "x\n\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := check.TailCheck{}.Detect(f)
	require.Error(t, err)
	require.Equal(t, pepclean.DetectionFailed, got)
	require.Equal(t, pepclean.ESeek, pepclean.ErrorCode(err))
}

func TestTailCheck_DetectInMemory(t *testing.T) {
	got, err := check.TailCheck{}.Detect(bytes.NewReader([]byte("a\n\n")))
	require.NoError(t, err)
	require.Equal(t, pepclean.HasIssue, got)
}

func TestTailCheck_Fix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		exp   string
	}{
		{name: "empty", input: "", exp: ""},
		{name: "lone line break", input: "\n", exp: ""},
		{name: "only line breaks", input: "\n\n\n", exp: ""},
		{name: "two line breaks", input: "\n\n", exp: ""},
		{name: "many trailing breaks", input: "x\n\n\n\n", exp: "x\n"},
		{name: "double trailing break", input: "a\n\n", exp: "a\n"},
		{name: "already clean", input: "clean\n", exp: "clean\n"},
		{name: "no trailing break", input: "clean", exp: "clean"},
		{name: "one byte", input: "x", exp: "x"},
		{name: "run longer than window", input: "data\n" + strings.Repeat("\n", 100), exp: "data\n"},
		{name: "run of exactly one window", input: "abcdefghijklmnopq" + strings.Repeat("\n", 16), exp: "abcdefghijklmnopq\n"},
		{name: "only breaks longer than window", input: strings.Repeat("\n", 37), exp: ""},
		{name: "short file of breaks", input: strings.Repeat("\n", 10), exp: ""},
		{name: "inner blank lines kept", input: "a\n\n\nb\n\n", exp: "a\n\n\nb\n"},
		{name: "long content short tail", input: strings.Repeat("line\n", 500) + "\n\n", exp: strings.Repeat("line\n", 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := MustWriteFile(t, tt.input)
			require.NoError(t, check.TailCheck{Logger: zaptest.NewLogger(t)}.Fix(path))
			require.Equal(t, tt.exp, MustReadFile(t, path))

			verdict, err := MustDetect(t, check.TailCheck{}, path)
			require.NoError(t, err)
			require.Equal(t, pepclean.NoIssue, verdict)
		})
	}
}

func TestTailCheck_FixAllSizes(t *testing.T) {
	// Exercise every window size against every prefix length.
	for prefix := 0; prefix <= 20; prefix++ {
		for breaks := 0; breaks <= 40; breaks++ {
			input := strings.Repeat("x", prefix) + strings.Repeat("\n", breaks)

			exp := input
			switch {
			case prefix == 0:
				exp = ""
			case breaks > 1:
				exp = strings.Repeat("x", prefix) + "\n"
			}

			path := MustWriteFile(t, input)
			require.NoError(t, check.TailCheck{}.Fix(path))
			require.Equal(t, exp, MustReadFile(t, path), "prefix=%d breaks=%d", prefix, breaks)
		}
	}
}

func TestTailCheck_FixMissingFile(t *testing.T) {
	err := check.TailCheck{}.Fix(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.Equal(t, pepclean.EOpen, pepclean.ErrorCode(err))
}

func TestRegistry(t *testing.T) {
	checks := check.Registry(zaptest.NewLogger(t))
	require.Len(t, checks, 2)
	require.Equal(t, "line-issues", checks[0].Name())
	require.Equal(t, "tail-issues", checks[1].Name())
}
