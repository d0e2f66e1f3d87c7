// Package worldsync copies dirty chunks from one worldstore.Store to
// another. It is the sync point every view provider calls at frame
// boundaries: the persistent-replica provider syncs with no mask, the
// pooled-snapshot provider syncs filtered by its convoy's component mask.
package worldsync

import (
	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// SyncFrom copies every chunk of src whose write version differs from dst's
// matching chunk into dst. When mask is nil every registered table is
// synced; otherwise only tables whose component type id is set in mask are
// touched.
//
// dst must be structurally compatible with src: every table mask selects in
// src must also exist in dst, with matching capacity growth. A missing
// destination table is a programmer error, not a recoverable condition, and
// SyncFrom panics rather than silently dropping data.
func SyncFrom(dst, src worldstore.Store, mask *world.ComponentMask) {
	for _, srcTable := range src.Tables() {
		id := srcTable.TypeID()
		if mask != nil && !mask.Test(id) {
			continue
		}

		dstTable, ok := dst.Table(id)
		if !ok {
			panic("worldsync: destination store has no table for component type registered in source; stores are not structurally compatible")
		}

		syncTable(dstTable, srcTable)
	}
}

func syncTable(dst, src worldstore.Table) {
	for i := 0; i < src.ChunkCount(); i++ {
		srcVersion := src.WriteVersion(i)
		dstVersion := uint64(0)
		if i < dst.ChunkCount() {
			dstVersion = dst.WriteVersion(i)
		}
		if srcVersion == dstVersion {
			continue
		}

		if !src.Allocated(i) {
			if dstVersion != srcVersion {
				dst.ClearChunk(i, srcVersion)
			}
			continue
		}

		dst.CopyChunkFrom(src, i)
	}
}
