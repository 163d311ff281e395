package tt

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Snapshot persistence lets a long analysis session carry its hash
// over a restart. The snapshot is taken without stopping writers, so
// it is a best-effort sample, not a consistent image.

type snapshot struct {
	Megabytes int
	Age       uint32
	Keys      []uint64
	Data      []uint64
}

// Save writes every occupied slot as a zstd-compressed gob stream.
func (t *Table) Save(w io.Writer) error {
	var snap = snapshot{
		Megabytes: t.megabytes,
		Age:       t.age.Load(),
	}
	for i := range t.slots {
		var key = t.slots[i].key.Load()
		if key == 0 {
			continue
		}
		snap.Keys = append(snap.Keys, key)
		snap.Data = append(snap.Data, t.slots[i].data.Load())
	}
	var zw, err = zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	if err = gob.NewEncoder(zw).Encode(&snap); err != nil {
		zw.Close()
		return fmt.Errorf("hash snapshot: %w", err)
	}
	return zw.Close()
}

// Load replays a snapshot through the normal store path, so a snapshot
// taken from a table of a different size still lands in valid buckets.
func (t *Table) Load(r io.Reader) error {
	var zr, err = zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	defer zr.Close()
	var snap snapshot
	if err = gob.NewDecoder(zr).Decode(&snap); err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	if len(snap.Keys) != len(snap.Data) {
		return fmt.Errorf("hash snapshot: %d keys, %d data words", len(snap.Keys), len(snap.Data))
	}
	t.age.Store(snap.Age & ageMask)
	for i, key := range snap.Keys {
		var e = unpackEntry(snap.Data[i])
		t.Store(key, e.Move, int(e.Score), int(e.Eval), e.Depth, e.Bound, e.IsPV)
	}
	return nil
}

func (t *Table) SaveFile(path string) error {
	var f, err = os.Create(path)
	if err != nil {
		return err
	}
	if err = t.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (t *Table) LoadFile(path string) error {
	var f, err = os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Load(f)
}
