package world

// Размеры мира в блоках
const (
	// ChunkSize ширина чанка по X и Y
	ChunkSize = 16
	// SlabSize высота слэба по Z
	SlabSize = 32
	// SliceSize число блоков в одном горизонтальном срезе
	SliceSize = ChunkSize * ChunkSize
	// SlabVolume число блоков в слэбе
	SlabVolume = SliceSize * SlabSize

	ChunkSizeShift = 4
	SlabSizeShift  = 5

	chunkMask   = ChunkSize - 1
	slabMask    = SlabSize - 1
	topSlice    = LocalSliceIndex(SlabSize - 1)
	bottomSlice = LocalSliceIndex(0)
)

// Высоты свободного пространства
const (
	// MaxFreeHeight верхняя граница отслеживаемой высоты (3 бита)
	MaxFreeHeight uint8 = 8
	// NavAreaMaxHeight высота, до которой обрезаются зоны навигации
	NavAreaMaxHeight uint8 = 4
	// MinClearance минимальная высота, нужная агенту
	MinClearance uint8 = 2
)
