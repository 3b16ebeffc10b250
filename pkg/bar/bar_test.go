package bar

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderAdvancesBar(t *testing.T) {
	var out bytes.Buffer
	src := strings.Repeat("t3D3137\r", 16)
	b := NewWriter(&out, int64(len(src)), "replay")

	n, err := io.Copy(io.Discard, Reader(strings.NewReader(src), b))
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	require.NoError(t, b.Finish())
	assert.Contains(t, out.String(), "replay")
}
