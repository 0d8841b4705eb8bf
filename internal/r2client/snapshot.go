package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/garyellow/coursetable/internal/timetable"
)

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

const snapshotContentType = "application/zstd"

// maxSnapshotSize bounds the decompressed snapshot. A full timetable is a
// few kilobytes.
const maxSnapshotSize = 4 << 20

// Snapshot is a backup of the stored timetable.
type Snapshot struct {
	Version   int                `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	Host      string             `json:"host,omitempty"`
	Courses   []timetable.Course `json:"courses"`
}

// EncodeSnapshot writes snap as zstd-compressed JSON.
func EncodeSnapshot(w io.Writer, snap *Snapshot) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("snapshot: create encoder: %w", err)
	}
	if err := json.NewEncoder(encoder).Encode(snap); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("snapshot: close encoder: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot and validates
// every course in it.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot: create decoder: %w", err)
	}
	defer decoder.Close()

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(decoder, maxSnapshotSize)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot: unsupported version %d", snap.Version)
	}
	for i, c := range snap.Courses {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot: course %d: %w", i, err)
		}
	}
	return &snap, nil
}

// PushSnapshot uploads courses under key and returns the new ETag. When
// ifMatch is non-empty the upload only succeeds if the stored snapshot still
// has that ETag.
func (c *Client) PushSnapshot(ctx context.Context, key string, snap *Snapshot, ifMatch string) (string, error) {
	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		return "", err
	}
	body := bytes.NewReader(buf.Bytes())
	if ifMatch != "" {
		return c.UploadIfMatch(ctx, key, body, snapshotContentType, ifMatch)
	}
	return c.Upload(ctx, key, body, snapshotContentType)
}

// PullSnapshot downloads and decodes the snapshot under key. It returns
// ErrNotFound when no backup exists.
func (c *Client) PullSnapshot(ctx context.Context, key string) (*Snapshot, string, error) {
	body, etag, err := c.Download(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = body.Close() }()

	snap, err := DecodeSnapshot(body)
	if err != nil {
		return nil, "", err
	}
	return snap, etag, nil
}
