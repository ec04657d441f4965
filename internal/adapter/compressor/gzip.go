package compressor

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/semmidev/vaultkeep/internal/domain"
)

const DefaultLevel = gzip.BestCompression

type GzipCompressor struct {
	level int
}

// NewGzip accepts levels 0 (store) through 9 (best compression).
func NewGzip(level int) (*GzipCompressor, error) {
	if level < gzip.NoCompression || level > gzip.BestCompression {
		return nil, domain.NewConfigurationError(fmt.Sprintf("compression level %d out of range 0..9", level), nil)
	}
	return &GzipCompressor{level: level}, nil
}

func (g *GzipCompressor) Level() int {
	return g.level
}

func (g *GzipCompressor) Compress(dst io.Writer, src io.Reader) error {
	gzipWriter, err := gzip.NewWriterLevel(dst, g.level)
	if err != nil {
		return domain.NewIOError("failed to create gzip writer", err)
	}

	if _, err := io.Copy(gzipWriter, src); err != nil {
		gzipWriter.Close()
		return domain.NewIOError("failed to compress", err)
	}

	if err := gzipWriter.Close(); err != nil {
		return domain.NewIOError("failed to flush gzip writer", err)
	}
	return nil
}

func (g *GzipCompressor) Decompress(dst io.Writer, src io.Reader) error {
	gzipReader, err := gzip.NewReader(src)
	if err != nil {
		return domain.NewIOError("failed to create gzip reader", err)
	}
	defer gzipReader.Close()

	if _, err := io.Copy(dst, gzipReader); err != nil {
		return domain.NewIOError("failed to decompress", err)
	}
	return nil
}
