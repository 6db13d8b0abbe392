package world

import (
	"errors"
	"math/rand"
)

const (
	CellFloor = 0
	CellWall  = 1
)

// 墙体几何：每段墙高 1 格、厚 2 个单位，中心抬高 0.5
const (
	wallDepth   = 2.0
	wallOffsetZ = 0.5
)

var (
	ErrEmptyGrid   = errors.New("world: empty grid")
	ErrNoWalkable  = errors.New("world: no walkable cell")
	ErrOutOfBounds = errors.New("world: cell out of bounds")
)

// DefaultGrid 内置 7x10 迷宫：封闭房间，中间一道带缺口的横墙
var DefaultGrid = [][]int{
	{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	{1, 1, 1, 1, 1, 1, 1, 0, 1, 1},
	{1, 0, 0, 0, 0, 0, 1, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
}

// World 静态世界：加载后只读，可在多个房间/协程间共享
type World struct {
	grid     [][]int
	width    int
	height   int
	walls    []Box
	walkable []Vec2
	entrance Vec2
	exit     Vec2
}

// New 由原始格子构建世界。entrance/exit 为 nil 时取第一个/最后一个可走格
func New(grid [][]int, entrance, exit *Vec2) (*World, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}
	w := &World{
		grid:   copyGrid(grid),
		height: len(grid),
	}
	for _, row := range w.grid {
		if len(row) > w.width {
			w.width = len(row)
		}
	}
	w.walls = BuildWalls(w.grid)
	for y, row := range w.grid {
		for x, c := range row {
			if c == CellFloor {
				w.walkable = append(w.walkable, Vec2{X: float64(x), Y: -float64(y)})
			}
		}
	}

	switch {
	case entrance != nil:
		w.entrance = *entrance
	case len(w.walkable) > 0:
		w.entrance = w.walkable[0]
	}
	switch {
	case exit != nil:
		w.exit = *exit
	case len(w.walkable) > 0:
		w.exit = w.walkable[len(w.walkable)-1]
	}
	return w, nil
}

// Default 返回内置迷宫
func Default() *World {
	w, _ := New(DefaultGrid, nil, nil)
	return w
}

// BuildWalls 按行做游程合并：连续的墙格合成一个盒子，
// 盒子数量与墙段数成正比，而不是与墙格数成正比
func BuildWalls(grid [][]int) []Box {
	var boxes []Box
	for y, row := range grid {
		run, start := 0, -1
		for x, c := range row {
			if c == CellWall {
				if run == 0 {
					start = x
				}
				run++
				if x != len(row)-1 {
					continue
				}
			}
			if run == 0 {
				continue
			}
			boxes = append(boxes, wallBox(start, y, run))
			run, start = 0, -1
		}
	}
	return boxes
}

// wallBox 从 (start, -row, 0) 起，宽 length 格、高 1 格
func wallBox(start, row, length int) Box {
	x, y := float64(start), -float64(row)
	return Box{
		Min: Vec3{X: x, Y: y, Z: wallOffsetZ - wallDepth/2},
		Max: Vec3{X: x + float64(length), Y: y + 1, Z: wallOffsetZ + wallDepth/2},
	}
}

// Collides 线性扫描墙体，命中第一个即返回
func (w *World) Collides(b Box) bool {
	for _, wall := range w.walls {
		if wall.Intersects(b) {
			return true
		}
	}
	return false
}

// Grid 返回格子副本
func (w *World) Grid() [][]int { return copyGrid(w.grid) }

func (w *World) Width() int  { return w.width }
func (w *World) Height() int { return w.height }

// Walls 返回墙体盒子副本
func (w *World) Walls() []Box {
	return append([]Box(nil), w.walls...)
}

// Walkable 返回所有可走格副本
func (w *World) Walkable() []Vec2 {
	return append([]Vec2(nil), w.walkable...)
}

func (w *World) Entrance() Vec2 { return w.entrance }
func (w *World) Exit() Vec2     { return w.exit }

// Center 地图中心（相机对准点）
func (w *World) Center() Vec2 {
	return Vec2{X: float64(w.width-1) / 2, Y: -float64(w.height-1) / 2}
}

// Cell 读取 (列, 行) 处的格子；越界返回 ErrOutOfBounds
func (w *World) Cell(x, y int) (int, error) {
	if y < 0 || y >= len(w.grid) || x < 0 || x >= len(w.grid[y]) {
		return 0, ErrOutOfBounds
	}
	return w.grid[y][x], nil
}

// RandomWalkable 随机取一个可走格。前提：至少存在一个可走格
func (w *World) RandomWalkable(rng *rand.Rand) (Vec2, error) {
	if len(w.walkable) == 0 {
		return Vec2{}, ErrNoWalkable
	}
	return w.walkable[rng.Intn(len(w.walkable))], nil
}

func copyGrid(grid [][]int) [][]int {
	out := make([][]int, len(grid))
	for i, row := range grid {
		out[i] = append([]int(nil), row...)
	}
	return out
}
