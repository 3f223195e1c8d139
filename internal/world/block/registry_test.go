package block

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	assert.Equal(t, Air, r.ByGlobalID(0), "Глобальный ID 0 - воздух")
	assert.Equal(t, Of(StoneBlockID), r.ByGlobalID(VanillaID(1, 0)))
	assert.Equal(t, Missing, r.ByGlobalID(123456), "Неизвестный ID должен давать Missing")

	id, ok := r.GlobalID(Of(WaterBlockID))
	require.True(t, ok)
	assert.Equal(t, uint32(9<<4), id)

	_, ok = r.GlobalID(Missing)
	assert.False(t, ok, "Missing не имеет глобального ID")

	assert.Equal(t, "stone", r.Name(Of(StoneBlockID)))
	assert.Equal(t, "missing", r.Name(Missing))
	assert.Equal(t, "unknown", r.Name(Block{ID: 4242}))
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("stone", Of(StoneBlockID), 16))

	err := r.Register("stone", Of(DirtBlockID), 48)
	assert.True(t, errors.Is(err, ErrDuplicateBlock), "Дублирующее имя должно отклоняться")

	err = r.Register("granite", Block{ID: StoneBlockID, Data: 1}, 16)
	assert.True(t, errors.Is(err, ErrDuplicateBlock), "Дублирующий глобальный ID должен отклоняться")

	err = r.Register("rock", Of(StoneBlockID), 99)
	assert.True(t, errors.Is(err, ErrDuplicateBlock), "Дублирующий блок должен отклоняться")

	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.yaml")
	content := `blocks:
  - name: granite
    id: 1
    data: 1
    global_id: 17
  - name: cobblestone
    id: 300
    global_id: 64
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	b, ok := r.ByName("granite")
	require.True(t, ok)
	assert.Equal(t, Block{ID: StoneBlockID, Data: 1}, b)
	assert.Equal(t, Block{ID: 300}, r.ByGlobalID(64))
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blocks: [: :"), 0644))
	assert.Error(t, r.LoadFile(path))
}

func TestBlockSentinels(t *testing.T) {
	assert.True(t, Air.IsAir())
	assert.False(t, Air.IsMissing())
	assert.True(t, Missing.IsMissing())
	assert.NotEqual(t, Air, Missing)
}
