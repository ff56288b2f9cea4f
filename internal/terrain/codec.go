package terrain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Формат слэба: байт типа, затем по 3 байта на блок (id little-endian, прочность)
const (
	blockRecordSize = 3
	encodedSlabSize = 1 + world.SlabVolume*blockRecordSize
)

var errBadSlabBlob = errors.New("повреждённые данные слэба")

func encodeSlab(h world.SlabHandle) []byte {
	buf := make([]byte, encodedSlabSize)
	buf[0] = byte(h.Type())
	blocks := h.Blocks()
	for i, b := range blocks {
		off := 1 + i*blockRecordSize
		binary.LittleEndian.PutUint16(buf[off:], uint16(b.Type))
		buf[off+2] = b.Durability
	}
	return buf
}

func decodeSlab(buf []byte) (*world.Slab, error) {
	if len(buf) != encodedSlabSize {
		return nil, fmt.Errorf("%w: длина %d", errBadSlabBlob, len(buf))
	}
	typ := world.SlabType(buf[0])
	if typ != world.SlabNormal && typ != world.SlabPlaceholder {
		return nil, fmt.Errorf("%w: тип %d", errBadSlabBlob, buf[0])
	}
	var blocks [world.SlabVolume]world.Block
	for i := range blocks {
		off := 1 + i*blockRecordSize
		blocks[i] = world.Block{
			Type:       block.BlockID(binary.LittleEndian.Uint16(buf[off:])),
			Durability: buf[off+2],
		}
	}
	return world.NewSlabFromBlocks(&blocks, typ), nil
}
