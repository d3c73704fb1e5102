package artifacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/pkg/compression"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "duid-1/kernel.cu.zst", Key("duid-1", KindKernel))
	assert.Equal(t, "duid-1/idgraph.json.zst", Key("duid-1", KindIdGraphDump))
	assert.Equal(t, "duid-1/snapshot.json.zst", Key("duid-1", KindSnapshot))
}

func TestUploadDownloadCompressed(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewLocalStore(tempDir)
	require.NoError(t, err)

	comp := compression.NewGzipCompressor(compression.LevelDefault)
	payload := []byte(`{"groups":[{"id":0,"iter_type":"Serial"}]}`)

	require.NoError(t, UploadCompressed(context.Background(), store, "duid-2", KindIdGraphDump, payload, comp))

	got, err := DownloadDecompressed(context.Background(), store, "duid-2", KindIdGraphDump)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
