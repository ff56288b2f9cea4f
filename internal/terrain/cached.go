package terrain

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/atomic"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/world"
)

// CacheStats счётчики кеша слэбов
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int64
}

// CachedSource кеширует сгенерированные слэбы другого источника в BadgerDB,
// работающей в памяти. Значения хранятся сжатыми zstd.
type CachedSource struct {
	Source

	db           *badger.DB
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	maxEntries   int64

	hits    *atomic.Uint64
	misses  *atomic.Uint64
	entries *atomic.Int64

	logger *logging.Logger
}

// NewCachedSource оборачивает источник кешем. maxEntries ограничивает число
// слэбов в кеше (0 без ограничения), cacheMB задаёт размер кеша блоков BadgerDB.
func NewCachedSource(inner Source, maxEntries int64, cacheMB int64) (*CachedSource, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Отключаем логирование BadgerDB
	if cacheMB > 0 {
		opts = opts.WithBlockCacheSize(cacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		_ = compressor.Close()
		_ = db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	return &CachedSource{
		Source:       inner,
		db:           db,
		compressor:   compressor,
		decompressor: decompressor,
		maxEntries:   maxEntries,
		hits:         atomic.NewUint64(0),
		misses:       atomic.NewUint64(0),
		entries:      atomic.NewInt64(0),
		logger:       logging.GetTerrainLogger(),
	}, nil
}

func slabKey(loc world.SlabLocation) []byte {
	return []byte(fmt.Sprintf("slab:%d:%d:%d", loc.Chunk.X, loc.Chunk.Y, loc.Slab))
}

// LoadSlab отдаёт слэб из кеша или загружает его из обёрнутого источника
func (c *CachedSource) LoadSlab(ctx context.Context, loc world.SlabLocation) (*GeneratedSlab, error) {
	key := slabKey(loc)

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data, err = c.decompressor.DecodeAll(val, nil)
			return err
		})
	})

	switch {
	case err == nil:
		slab, decodeErr := decodeSlab(data)
		if decodeErr == nil {
			c.hits.Inc()
			return &GeneratedSlab{Terrain: slab}, nil
		}
		c.logger.Warn("⚠️ Повреждённый слэб %s в кеше: %v", loc, decodeErr)
	case !errors.Is(err, badger.ErrKeyNotFound):
		c.logger.Warn("⚠️ Ошибка чтения слэба %s из кеша: %v", loc, err)
	}

	c.misses.Inc()
	gen, err := c.Source.LoadSlab(ctx, loc)
	if err != nil {
		return nil, err
	}
	c.store(key, gen.Terrain)
	return gen, nil
}

func (c *CachedSource) store(key []byte, slab *world.Slab) {
	if c.maxEntries > 0 && c.entries.Load() >= c.maxEntries {
		return
	}
	blob := c.compressor.EncodeAll(encodeSlab(slab.Handle()), nil)
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, blob)
	})
	if err != nil {
		c.logger.Warn("⚠️ Не удалось сохранить слэб в кеш: %v", err)
		return
	}
	c.entries.Inc()
}

// Invalidate удаляет слэб из кеша (например, после изменения блоков)
func (c *CachedSource) Invalidate(loc world.SlabLocation) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(slabKey(loc)); err != nil {
			return err
		}
		return txn.Delete(slabKey(loc))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	c.entries.Dec()
	return nil
}

// Stats текущие счётчики кеша
func (c *CachedSource) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.entries.Load()}
}

// Close закрывает кеш
func (c *CachedSource) Close() error {
	c.decompressor.Close()
	_ = c.compressor.Close()
	return c.db.Close()
}
