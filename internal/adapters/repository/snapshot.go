package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/pkg/metrics"
	"github.com/okian/explorer/pkg/varint"
)

// Snapshot layout: magic, version byte, then a zstd stream of records
// varint(len key) key varint(len value) value. Version 2 ends the entries
// with an empty key and follows them with varint(len id) id records until
// the end of the stream. Version 1 has entries only.
const (
	snapshotMagic   = "OXIS"
	snapshotVersion = byte(2)
	snapshotV1      = byte(1)

	maxKeyLen   = 128
	maxValueLen = 64 << 20
)

// Snapshot implements Store.Snapshot. Each shard is read under its lock, so
// the snapshot is consistent per shard but not across shards.
func (s *MemStore) Snapshot(ctx context.Context, w io.Writer, seen []model.GameID) (int, error) {
	if _, err := io.WriteString(w, snapshotMagic); err != nil {
		return 0, err
	}
	if _, err := w.Write([]byte{snapshotVersion}); err != nil {
		return 0, err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return 0, fmt.Errorf("create zstd encoder: %w", err)
	}

	written := 0
	var buf []byte
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			_ = enc.Close()
			return written, err
		}
		sh.mu.RLock()
		for key, val := range sh.entries {
			buf = varint.Append(buf[:0], uint64(len(key)))
			buf = append(buf, key...)
			buf = varint.Append(buf, uint64(len(val)))
			buf = append(buf, val...)
			if _, err := enc.Write(buf); err != nil {
				sh.mu.RUnlock()
				_ = enc.Close()
				return written, err
			}
			written++
		}
		sh.mu.RUnlock()
	}

	buf = varint.Append(buf[:0], 0)
	for _, id := range seen {
		buf = varint.Append(buf, uint64(len(id)))
		buf = append(buf, id...)
	}
	if _, err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return written, err
	}
	if err := enc.Close(); err != nil {
		return written, err
	}
	return written, nil
}

// Restore implements Store.Restore. Every value is decoded before it is
// accepted, so a restored index never holds malformed entries.
func (s *MemStore) Restore(ctx context.Context, r io.Reader) (int, []model.GameID, error) {
	head := make([]byte, len(snapshotMagic)+1)
	if _, err := io.ReadFull(r, head); err != nil {
		return 0, nil, fmt.Errorf("%w: header: %w", ErrCorruptSnapshot, err)
	}
	if string(head[:len(snapshotMagic)]) != snapshotMagic {
		return 0, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, head[:len(snapshotMagic)])
	}
	version := head[len(snapshotMagic)]
	if version != snapshotVersion && version != snapshotV1 {
		return 0, nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, version)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	shards := newShards(len(s.shards))
	loaded := 0
	terminated := false
	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		key, err := readField(br, maxKeyLen)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("%w: record %d key: %w", ErrCorruptSnapshot, loaded, err)
		}
		if len(key) == 0 && version == snapshotVersion {
			terminated = true
			break
		}
		val, err := readField(br, maxValueLen)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, nil, fmt.Errorf("%w: record %d value: %w", ErrCorruptSnapshot, loaded, err)
		}
		if _, err := lichess.UnmarshalEntry(val); err != nil {
			return 0, nil, fmt.Errorf("%w: record %d: %w", ErrCorruptSnapshot, loaded, err)
		}

		k := opening.Key(key)
		sh := shards[xxhash64(k)%uint64(len(shards))]
		if _, dup := sh.entries[k]; dup {
			return 0, nil, fmt.Errorf("%w: duplicate position %s", ErrCorruptSnapshot, k)
		}
		sh.entries[k] = val
		loaded++
	}
	if version == snapshotVersion && !terminated {
		return 0, nil, fmt.Errorf("%w: entries not terminated: %w", ErrCorruptSnapshot, io.ErrUnexpectedEOF)
	}

	var seen []model.GameID
	for terminated {
		raw, err := readField(br, model.GameIDLen)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("%w: seen id %d: %w", ErrCorruptSnapshot, len(seen), err)
		}
		id, err := model.ParseGameID(string(raw))
		if err != nil {
			return 0, nil, fmt.Errorf("%w: seen id %d: %w", ErrCorruptSnapshot, len(seen), err)
		}
		seen = append(seen, id)
	}

	for i, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = shards[i].entries
		sh.mu.Unlock()
	}
	s.count.Store(int64(loaded))
	metrics.UpdatePositionsTotal(loaded)
	return loaded, seen, nil
}

// readField reads one length-prefixed field. io.EOF is returned only when
// the stream ends before the length.
func readField(r *bufio.Reader, maxLen uint64) ([]byte, error) {
	n, err := varint.Read(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("field length %d exceeds %d", n, maxLen)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return out, nil
}
