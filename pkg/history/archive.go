package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// ArchiveVersion is written into every archive file.
const ArchiveVersion = 1

// Archive is the content of one archive file.
type Archive struct {
	Version    int             `cbor:"version"`
	ArchivedAt time.Time       `cbor:"archived_at"`
	Entries    []ArchivedEntry `cbor:"entries"`
}

// ArchivedEntry is a pruned history row. States hold the original JSON text.
type ArchivedEntry struct {
	ID        uint      `cbor:"id"`
	CanvasID  uint      `cbor:"canvas_id"`
	Action    string    `cbor:"action"`
	ElementID *string   `cbor:"element_id,omitempty"`
	OldState  []byte    `cbor:"old_state,omitempty"`
	NewState  []byte    `cbor:"new_state,omitempty"`
	UserID    uint      `cbor:"user_id"`
	CreatedAt time.Time `cbor:"created_at"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func newArchive(rows []*models.CanvasHistory, now time.Time) Archive {
	a := Archive{
		Version:    ArchiveVersion,
		ArchivedAt: now.UTC(),
		Entries:    make([]ArchivedEntry, len(rows)),
	}
	for i, r := range rows {
		a.Entries[i] = ArchivedEntry{
			ID:        r.ID,
			CanvasID:  r.CanvasID,
			Action:    r.Action,
			ElementID: r.ElementID,
			OldState:  []byte(r.OldState),
			NewState:  []byte(r.NewState),
			UserID:    r.UserID,
			CreatedAt: r.CreatedAt.UTC(),
		}
	}
	return a
}

// writeArchive writes a to a new file in dir and returns its path. The file
// appears under its final name only once it is complete.
func writeArchive(dir string, a Archive) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	data, err := encMode.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode archive: %w", err)
	}

	name := fmt.Sprintf("history-%s.cbor", a.ArchivedAt.Format("20060102T150405.000000000Z"))
	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish archive: %w", err)
	}
	return path, nil
}

// ReadArchive decodes an archive file written by the pruner.
func ReadArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Archive
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", path, err)
	}
	return &a, nil
}
