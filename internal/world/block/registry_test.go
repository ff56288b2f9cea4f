package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	stone, ok := Get(StoneBlockID)
	require.True(t, ok, "камень должен быть зарегистрирован")
	assert.Equal(t, Solid, stone.Opacity)
	assert.Equal(t, "stone", stone.Name)

	assert.Equal(t, Transparent, OpacityOf(AirBlockID))
	assert.Equal(t, Transparent, OpacityOf(WaterBlockID))
	assert.Equal(t, Solid, OpacityOf(BlockID(4242)), "неизвестный тип считается твёрдым")
	assert.False(t, IsValidBlockID(BlockID(4242)))
}

func TestByName(t *testing.T) {
	grass, err := ByName(" Grass ")
	require.NoError(t, err)
	assert.Equal(t, GrassBlockID, grass.ID)

	_, err = ByName("unobtainium")
	assert.Error(t, err)

	assert.Equal(t, "grass", GrassBlockID.String())
	assert.Equal(t, "block#4242", BlockID(4242).String())
}
