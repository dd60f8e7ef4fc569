package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFallsBackToOSC52(t *testing.T) {
	if Native() {
		t.Skip("a clipboard tool is installed")
	}

	var buf bytes.Buffer
	old := Terminal
	Terminal = &buf
	t.Cleanup(func() { Terminal = old })

	require.NoError(t, Write(context.Background(), "山 ⭕"))
	assert.Contains(t, buf.String(), base64.StdEncoding.EncodeToString([]byte("山 ⭕")))
	assert.Contains(t, buf.String(), "\x1b]52;")
}
