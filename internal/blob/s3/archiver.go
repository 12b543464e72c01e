package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/polymirror/mirrorbot/internal/domain"
)

// TradeArchiveStore provides read access to the trade ledger for archival.
// The Postgres TradeLedger satisfies this implicitly.
type TradeArchiveStore interface {
	// ListBefore returns all trades with a timestamp strictly before the
	// given unix time, oldest first.
	ListBefore(ctx context.Context, before int64) ([]domain.TradeRecord, error)
}

// BlobWriter is the upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver copies aged trade records out of the primary store into
// object-storage JSONL files.
//
// Deletion of the archived rows from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to run after the archive
// has been verified.
type Archiver struct {
	writer BlobWriter
	trades TradeArchiveStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer BlobWriter, trades TradeArchiveStore) *Archiver {
	return &Archiver{writer: writer, trades: trades}
}

// ArchiveTrades queries all trades recorded before the cutoff, serializes
// them to JSONL, and uploads the file to archive/trades/YYYY-MM.jsonl. It
// returns the number of records archived.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	return int64(len(trades)), nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
