package loader

import (
	"context"

	"github.com/agenthands/reviewgraph/internal/core/model"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
)

const DefaultBatchSize = 100

type Result struct {
	Written      int64
	Errors       int64
	Chunks       int
	FailedChunks int
}

// Loader upserts documents in fixed-size chunks. A failed chunk is logged and
// the remaining chunks still run.
type Loader struct {
	writer    store.Writer
	batchSize int
	log       *logger.Logger
}

func New(writer store.Writer, batchSize int, log *logger.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{writer: writer, batchSize: batchSize, log: log}
}

func (l *Loader) Load(ctx context.Context, collection model.Collection, docs []model.Document) Result {
	var res Result
	if len(docs) == 0 {
		l.log.Info("nothing to load", "collection", collection.Name)
		return res
	}

	for start := 0; start < len(docs); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			l.log.Warn("load cancelled", "collection", collection.Name, "error", err)
			break
		}
		end := min(start+l.batchSize, len(docs))
		res.Chunks++

		imported, err := l.writer.Import(ctx, collection, docs[start:end])
		if err != nil {
			res.FailedChunks++
			l.log.Error("chunk import failed", "collection", collection.Name, "offset", start, "size", end-start, "error", err)
			continue
		}
		res.Written += imported.Created + imported.Updated
		res.Errors += imported.Errors
		if imported.Errors > 0 {
			l.log.Warn("chunk imported with document errors", "collection", collection.Name, "offset", start, "errors", imported.Errors)
		}
	}

	l.log.Info("loaded collection", "collection", collection.Name, "documents", len(docs),
		"written", res.Written, "chunks", res.Chunks, "failed_chunks", res.FailedChunks)
	return res
}
