package mesher

import (
	"context"

	"github.com/annel0/chunkstore/internal/world"
	"github.com/annel0/chunkstore/internal/world/block"
)

// Mesh - итог построения секции. Вместо вершин хранит счётчики,
// которых хватает для оценки размера геометрии.
type Mesh struct {
	Solid int `json:"solid"`
	Faces int `json:"faces"`
}

// BuildFunc строит секцию по снимку задания
type BuildFunc func(ctx context.Context, job Job) (Mesh, error)

var neighbours = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// CountFaces считает видимые грани непрозрачных блоков секции.
// Снимок должен быть относительным: секция занимает [0,16) по каждой оси,
// рамка в одну ячейку даёт соседей. Грань видима, если сосед - воздух;
// отсутствующие соседи (Missing) грань закрывают.
func CountFaces(ctx context.Context, job Job) (Mesh, error) {
	snap := job.Snapshot
	var mesh Mesh
	for y := 0; y < world.SectionSize; y++ {
		if err := ctx.Err(); err != nil {
			return Mesh{}, err
		}
		for z := 0; z < world.SectionSize; z++ {
			for x := 0; x < world.SectionSize; x++ {
				b := snap.GetBlock(x, y, z)
				if b.IsAir() || b.IsMissing() {
					continue
				}
				mesh.Solid++
				for _, n := range neighbours {
					if snap.GetBlock(x+n[0], y+n[1], z+n[2]) == block.Air {
						mesh.Faces++
					}
				}
			}
		}
	}
	return mesh, nil
}
