package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// pathTimeout ограничение на поиск пути из HTTP-запроса
const pathTimeout = 10 * time.Second

// Vec3JSON координаты в теле запроса
type Vec3JSON struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

func (v Vec3JSON) vec() vec.Vec3 { return vec.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// SetBlocksRequest изменение параллелепипеда блоков
type SetBlocksRequest struct {
	From  Vec3JSON  `json:"from"`
	To    *Vec3JSON `json:"to,omitempty"` // без To меняется один блок
	Block string    `json:"block" binding:"required"`
}

// RequestSlabsRequest запрос загрузки прямоугольной области
type RequestSlabsRequest struct {
	ChunkMin Vec3JSON `json:"chunk_min"` // Z: номер нижнего слэба
	ChunkMax Vec3JSON `json:"chunk_max"` // Z: номер верхнего слэба
}

// parseVec разбирает "x,y,z"
func parseVec(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидается x,y,z: %q", s)
	}
	var out [3]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %q: %w", p, err)
		}
		out[i] = int32(n)
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// queryHeight требуемая свободная высота агента
func queryHeight(c *gin.Context) (uint8, error) {
	h, err := queryInt(c, "height", 2)
	if err != nil || h < 1 || h > int(world.NavAreaMaxHeight) {
		return 0, fmt.Errorf("height должен быть от 1 до %d", world.NavAreaMaxHeight)
	}
	return uint8(h), nil
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику мира и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	states := make(map[string]int)
	var nodes, edges, chunks, loading int
	var epoch uint64
	rs.service.Ref().Read(func(w *world.World) {
		for st, n := range w.CountSlabs() {
			states[st.String()] = n
		}
		nodes, edges = w.Graph().NodeCount(), w.Graph().EdgeCount()
		chunks = len(w.Chunks())
		loading = w.CountLoadingSlabs()
		epoch = w.Epoch()
	})

	stats := map[string]interface{}{
		"world": map[string]interface{}{
			"chunks":        chunks,
			"slabs":         states,
			"loading_slabs": loading,
			"graph_nodes":   nodes,
			"graph_edges":   edges,
			"epoch":         epoch,
		},
		"loader": map[string]interface{}{
			"inflight": rs.service.Loader().Inflight(),
			"pending":  rs.service.PendingUpdates(),
		},
		"server": rs.metrics.Snapshot(),
	}
	if bus := rs.service.Bus(); bus != nil {
		stats["eventbus"] = bus.Metrics()
	}

	respondOK(c, "Статистика получена", stats)
}

// handleGetBlock блок, затенение и зона по позиции ?pos=x,y,z
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parseVec(c.Query("pos"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	height, err := queryHeight(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		b      world.Block
		ok     bool
		occ    world.BlockOcclusion
		area   world.WorldArea
		inArea bool
	)
	rs.service.Ref().Read(func(w *world.World) {
		b, ok = w.Block(pos)
		if !ok {
			return
		}
		occ = w.BlockOcclusionComplete(pos)
		area, inArea = w.FindAreaForBlock(pos, height)
	})
	if !ok {
		respondError(c, http.StatusNotFound, fmt.Sprintf("слэб позиции %s не загружен", pos))
		return
	}

	data := gin.H{
		"pos":        pos,
		"block":      b.Type.String(),
		"durability": b.Durability,
		"solid":      b.IsSolid(),
		"visible":    visibleFaces(occ),
	}
	if inArea {
		data["area"] = area.String()
	}
	respondOK(c, "Блок", data)
}

// handleColumn поверхность и доступная позиция столбца ?x=&y=
func (rs *RestServer) handleColumn(c *gin.Context) {
	x, errX := queryInt(c, "x", 0)
	y, errY := queryInt(c, "y", 0)
	if err := errors.Join(errX, errY); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	height, err := queryHeight(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	data := gin.H{}
	rs.service.Ref().Read(func(w *world.World) {
		if g, ok := w.GroundLevel(int32(x), int32(y)); ok {
			data["ground"] = g
		}
		if p, ok := w.FindAccessibleBlockInColumn(int32(x), int32(y), height); ok {
			data["accessible"] = p
		}
	})
	if gen, err := rs.service.Loader().GroundLevel(c.Request.Context(), int32(x), int32(y)); err == nil {
		data["generated_ground"] = gen
	}
	respondOK(c, "Столбец", data)
}

// handleGetSlab состояние слэба и его зоны
func (rs *RestServer) handleGetSlab(c *gin.Context) {
	var coords [3]int64
	for i, name := range []string{"x", "y", "z"} {
		n, err := strconv.ParseInt(c.Param(name), 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("параметр %s: %v", name, err))
			return
		}
		coords[i] = n
	}
	loc := world.SlabLocation{
		Chunk: world.ChunkLocation{X: int32(coords[0]), Y: int32(coords[1])},
		Slab:  world.SlabIndex(coords[2]),
	}

	type areaJSON struct {
		Key    string `json:"key"`
		Area   string `json:"area"`
		Cells  int    `json:"cells"`
		Height uint8  `json:"height"`
		Edges  int    `json:"edges"`
	}

	var (
		state   world.SlabLoadState
		stamp   uint64
		version uint64
		areas   []areaJSON
	)
	rs.service.Ref().Read(func(w *world.World) {
		d := w.SlabData(loc)
		if d == nil {
			return
		}
		state, stamp, version = d.State(), d.Stamp(), d.TerrainVersion()
		for _, a := range d.Areas() {
			wa := world.NewWorldArea(loc, a.Key())
			edges, _ := w.Graph().Neighbours(wa)
			areas = append(areas, areaJSON{
				Key:    a.Key().String(),
				Area:   a.Area.String(),
				Cells:  a.Area.Cells(),
				Height: a.Area.Height,
				Edges:  len(edges),
			})
		}
	})

	respondOK(c, "Слэб "+loc.String(), gin.H{
		"state":           state.String(),
		"stamp":           stamp,
		"terrain_version": version,
		"in_bounds":       rs.service.Loader().IsInBounds(loc),
		"areas":           areas,
	})
}

func visibleFaces(occ world.BlockOcclusion) []string {
	var out []string
	for _, f := range world.Faces {
		if occ.FaceVisible(f) {
			out = append(out, f.String())
		}
	}
	return out
}

func parseGoal(c *gin.Context) (pathfind.Goal, error) {
	switch c.DefaultQuery("goal", "arrive") {
	case "arrive":
		return pathfind.Arrive, nil
	case "adjacent":
		return pathfind.Adjacent, nil
	case "nearby":
		r, err := queryInt(c, "radius", 2)
		if err != nil || r < 0 || r > 255 {
			return pathfind.Goal{}, errors.New("radius должен быть от 0 до 255")
		}
		return pathfind.Nearby(uint8(r)), nil
	}
	return pathfind.Goal{}, fmt.Errorf("неизвестная цель %q", c.Query("goal"))
}

// handleFindPath ищет путь ?from=x,y,z&to=x,y,z&goal=arrive|adjacent|nearby
func (rs *RestServer) handleFindPath(c *gin.Context) {
	from, errFrom := parseVec(c.Query("from"))
	to, errTo := parseVec(c.Query("to"))
	if err := errors.Join(errFrom, errTo); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := parseGoal(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	height, err := queryHeight(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pathTimeout)
	defer cancel()

	path, err := rs.service.Finder().FindPath(ctx, from, to, goal, height)
	if err != nil {
		respondError(c, pathErrorStatus(err), err.Error())
		return
	}

	waypoints := make([]gin.H, 0, len(path.Waypoints))
	for _, wp := range path.Waypoints {
		waypoints = append(waypoints, gin.H{"pos": wp.Pos, "exit": wp.Exit.String()})
	}
	areas := make([]string, 0, len(path.Areas))
	for _, a := range path.Areas {
		areas = append(areas, a.Area.String())
	}
	respondOK(c, "Путь найден", gin.H{
		"target":    path.Target,
		"areas":     areas,
		"waypoints": waypoints,
	})
}

func pathErrorStatus(err error) int {
	var (
		srcErr  *world.SourceNotWalkableError
		dstErr  *world.DestinationNotWalkableError
		areaErr *world.InvalidAreaError
	)
	switch {
	case errors.As(err, &srcErr), errors.As(err, &dstErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pathfind.ErrNoPath):
		return http.StatusNotFound
	case errors.Is(err, pathfind.ErrWorldChanged), errors.As(err, &areaErr):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// handleSetBlocks ставит изменение рельефа в очередь следующего такта
func (rs *RestServer) handleSetBlocks(c *gin.Context) {
	var req SetBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный JSON: "+err.Error())
		return
	}
	bt, err := block.ByName(req.Block)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	to := req.From
	if req.To != nil {
		to = *req.To
	}
	u := world.BoxUpdate(req.From.vec(), to.vec(), world.NewBlock(bt.ID))
	rs.service.SubmitUpdate(u)
	rs.logger.Debug("изменение принято: %s", u)

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Изменение поставлено в очередь",
		Data:    gin.H{"update": u.String()},
	})
}

// handleRequestSlabs запрашивает загрузку области
func (rs *RestServer) handleRequestSlabs(c *gin.Context) {
	var req RequestSlabsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный JSON: "+err.Error())
		return
	}
	lo, hi := req.ChunkMin.vec().Min(req.ChunkMax.vec()), req.ChunkMin.vec().Max(req.ChunkMax.vec())
	count := int64(hi.X-lo.X+1) * int64(hi.Y-lo.Y+1) * int64(hi.Z-lo.Z+1)
	if count > maxSlabsPerRequest {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("слишком большая область: %d слэбов", count))
		return
	}

	slabs := make([]world.SlabLocation, 0, count)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				slabs = append(slabs, world.SlabLocation{
					Chunk: world.ChunkLocation{X: x, Y: y},
					Slab:  world.SlabIndex(z),
				})
			}
		}
	}
	accepted := rs.service.Loader().RequestSlabs(slabs)
	respondOK(c, "Запрос отправлен", gin.H{"requested": len(slabs), "accepted": accepted})
}

const maxSlabsPerRequest = 4096
