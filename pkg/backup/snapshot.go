// Package backup writes and restores snapshots of every model routing.
//
// A snapshot is one JSON document, snappy-compressed, wrapped with a
// magic header and a CRC-32 footer so a truncated or bit-rotted file
// is detected before anything is applied. Restores go through the
// normal replace path, so a snapshot can never smuggle an invalid
// graph past validation.
package backup

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/golang/snappy"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// SnapshotVersion is written into every snapshot document.
const SnapshotVersion = 1

// File framing: [magic 4][compressed payload][CRC-32 4, big endian].
// The checksum covers the compressed payload.
var snapshotMagic = []byte("LRS1")

var (
	ErrNotSnapshot      = errors.New("not a routing snapshot")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// Snapshot is the decoded snapshot document.
type Snapshot struct {
	Version   int                    `json:"version"`
	CreatedAt time.Time              `json:"created_at"`
	Routings  []routing.ModelRouting `json:"routings"`
}

// Encode serializes, compresses and frames a snapshot.
func Encode(snap *Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	compressed := snappy.Encode(nil, payload)

	out := make([]byte, 0, len(snapshotMagic)+len(compressed)+4)
	out = append(out, snapshotMagic...)
	out = append(out, compressed...)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(compressed))
	return out, nil
}

// Decode verifies framing and checksum, then decompresses and parses.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < len(snapshotMagic)+4 {
		return nil, ErrNotSnapshot
	}
	for i, b := range snapshotMagic {
		if data[i] != b {
			return nil, ErrNotSnapshot
		}
	}

	compressed := data[len(snapshotMagic) : len(data)-4]
	want := binary.BigEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(compressed) != want {
		return nil, ErrChecksumMismatch
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}
