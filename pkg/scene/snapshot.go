package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// ErrCorruptSnapshot is returned when a snapshot file fails its checks.
var ErrCorruptSnapshot = errors.New("scene: corrupt snapshot")

const (
	snapshotMagic   = "ASPS"
	snapshotVersion = byte(1)
	snapshotFile    = "scenes.snap"
)

// snapshot is everything a MemoryStore holds.
type snapshot struct {
	Scenes []Scene                     `json:"scenes"`
	Runs   map[string][]simulation.Run `json:"runs,omitempty"`
}

// encodeSnapshot frames a snapshot as
// [magic:4][version:1][rawLen:4][dataLen:4][data:N][crc32:4]
// where data is the snappy-compressed JSON document.
func encodeSnapshot(s snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	data := snappy.Encode(nil, raw)

	var buf bytes.Buffer
	buf.Grow(len(data) + 17)
	buf.WriteString(snapshotMagic)
	buf.WriteByte(snapshotVersion)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(raw)))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(data))
	return buf.Bytes(), nil
}

func decodeSnapshot(b []byte) (snapshot, error) {
	r := bytes.NewReader(b)
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != snapshotMagic {
		return snapshot{}, fmt.Errorf("%w: bad header", ErrCorruptSnapshot)
	}
	version, err := r.ReadByte()
	if err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if version != snapshotVersion {
		return snapshot{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, version)
	}

	var rawLen, dataLen uint32
	if err := binary.Read(r, binary.BigEndian, &rawLen); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if err := binary.Read(r, binary.BigEndian, &dataLen); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if int64(dataLen) > int64(r.Len()) {
		return snapshot{}, fmt.Errorf("%w: truncated", ErrCorruptSnapshot)
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	var sum uint32
	if err := binary.Read(r, binary.BigEndian, &sum); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if sum != crc32.ChecksumIEEE(data) {
		return snapshot{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if uint32(len(raw)) != rawLen {
		return snapshot{}, fmt.Errorf("%w: length mismatch", ErrCorruptSnapshot)
	}
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return snapshot{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return s, nil
}

// writeSnapshotFile replaces dir/scenes.snap atomically.
func writeSnapshotFile(dir string, s snapshot) error {
	b, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, snapshotFile+".*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmpName, filepath.Join(dir, snapshotFile))
}

// readSnapshotFile loads dir/scenes.snap. A missing file is an empty snapshot.
func readSnapshotFile(dir string) (snapshot, error) {
	b, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if errors.Is(err, os.ErrNotExist) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return decodeSnapshot(b)
}
