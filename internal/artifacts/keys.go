package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/tensorfuse/fusegen/pkg/compression"
)

// Kind identifies the category of artifact produced by a lowering run.
type Kind string

const (
	// KindSnapshot is the IR payload captured at document submission time.
	KindSnapshot Kind = "snapshot"
	// KindKernel is the rendered pseudo-CUDA text emitted after lowering.
	KindKernel Kind = "kernel"
	// KindIdGraphDump is the JSON dump of the IdGraph/ExprGroup state.
	KindIdGraphDump Kind = "idgraph"
)

func (k Kind) extension() string {
	switch k {
	case KindKernel:
		return "cu"
	default:
		return "json"
	}
}

// Key builds the object-storage key for a document's artifact of the given kind.
// Keys are namespaced by document UUID so sub-documents of a master document
// never collide.
func Key(docUUID string, kind Kind) string {
	return fmt.Sprintf("%s/%s.%s.zst", docUUID, kind, kind.extension())
}

// UploadCompressed compresses data with the given compressor and uploads it
// under the artifact key for docUUID/kind. Rendered kernel text and idgraph
// dumps can be large for fusions with many loop nests, so every artifact is
// stored compressed.
func UploadCompressed(ctx context.Context, store Store, docUUID string, kind Kind, data []byte, comp compression.Compressor) error {
	compressed, err := comp.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress %s artifact for %s: %w", kind, docUUID, err)
	}
	if err := store.Upload(ctx, Key(docUUID, kind), bytes.NewReader(compressed)); err != nil {
		return fmt.Errorf("failed to upload %s artifact for %s: %w", kind, docUUID, err)
	}
	return nil
}

// DownloadDecompressed fetches the artifact for docUUID/kind and decompresses
// it, auto-detecting the compression format from its magic bytes.
func DownloadDecompressed(ctx context.Context, store Store, docUUID string, kind Kind) ([]byte, error) {
	reader, err := store.Download(ctx, Key(docUUID, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s artifact for %s: %w", kind, docUUID, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact for %s: %w", kind, docUUID, err)
	}

	data, err := compression.AutoDecompress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s artifact for %s: %w", kind, docUUID, err)
	}
	return data, nil
}
