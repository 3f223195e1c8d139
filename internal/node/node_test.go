package node

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/chunkstore/internal/debugapi"
	"github.com/annel0/chunkstore/internal/ingest"
	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/mesher"
	"github.com/annel0/chunkstore/internal/vec"
	"github.com/annel0/chunkstore/internal/world"
	"github.com/annel0/chunkstore/internal/world/block"
	"github.com/annel0/chunkstore/internal/worldgen"
)

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("node", io.Discard, logging.ERROR)
}

func TestNode_IngestsAndBuilds(t *testing.T) {
	w := world.New(block.Default(), world.WithLogger(quietLogger()))
	q, err := ingest.NewQueue(32, ingest.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer q.Close()

	sent, err := worldgen.New(3).Stream(context.Background(), q, w.Resolver(), vec.Vec2{}, 1, ingest.CompressionZlib)
	require.NoError(t, err)
	require.Equal(t, 9, sent)

	sched := mesher.NewScheduler(w, mesher.Config{Workers: 2, MaxInFlight: 8}, mesher.WithLogger(quietLogger()))
	box := &debugapi.StatsBox{}
	n := New(w, q, sched, box, Config{TickInterval: time.Millisecond, DrainPerTick: 4}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	workersDone := make(chan error, 1)
	go func() { workersDone <- sched.Run(ctx) }()
	ownerDone := make(chan error, 1)
	go func() { ownerDone <- n.Run(ctx) }()

	require.Eventually(t, func() bool {
		r := box.Latest()
		return r.World.Chunks == 9 && r.Mesher.Completed > 0
	}, 5*time.Second, 5*time.Millisecond, "Колонки загружены и секции построены")

	cancel()
	require.NoError(t, <-ownerDone)
	require.NoError(t, <-workersDone)

	// после выхода Run владение миром возвращается тесту
	st := w.Stats()
	assert.Equal(t, 9, st.Chunks)
	assert.Equal(t, 0, st.Building, "Флаги построения сняты при остановке")
	assert.Equal(t, 0, q.Len())

	last := box.Latest()
	assert.Equal(t, st, last.World, "Последний отчёт соответствует миру")
	assert.Greater(t, last.Tick, uint64(0))
}
