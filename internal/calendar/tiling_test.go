package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTile_SingleDayUnlinked(t *testing.T) {
	slots, err := Tile(TileSpec{
		Range:  Interval{Start: At(9, 0), End: At(11, 0)},
		Length: 30,
		Days:   []Day{Monday},
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)

	want := []Interval{
		{Start: At(9, 0), End: At(9, 30)},
		{Start: At(9, 30), End: At(10, 0)},
		{Start: At(10, 0), End: At(10, 30)},
		{Start: At(10, 30), End: At(11, 0)},
	}
	for i, s := range slots {
		require.Len(t, s.Times, 1)
		assert.False(t, s.Linked())
		assert.Nil(t, s.ID)
		assert.Equal(t, Monday, s.Times[0].Day)
		assert.Equal(t, want[i], s.Times[0].Interval)
	}
}

func TestTile_LinkedDays(t *testing.T) {
	slots, err := Tile(TileSpec{
		Range:    Interval{Start: At(9, 0), End: At(11, 0)},
		Length:   30,
		Days:     []Day{Monday, Wednesday},
		LinkDays: true,
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)

	for _, s := range slots {
		require.Len(t, s.Times, 2)
		assert.True(t, s.Linked())
		assert.Equal(t, Monday, s.Times[0].Day)
		assert.Equal(t, Wednesday, s.Times[1].Day)
		assert.Equal(t, s.Times[0].Interval, s.Times[1].Interval)
	}
}

func TestTile_UnlinkedMultipleDays(t *testing.T) {
	slots, err := Tile(TileSpec{
		Range:  Interval{Start: At(9, 0), End: At(11, 0)},
		Length: 30,
		Days:   []Day{Monday, Wednesday},
	})
	require.NoError(t, err)
	assert.Len(t, slots, 8)
	for _, s := range slots {
		assert.Len(t, s.Times, 1)
	}
}

func TestTile_StopsBeforeOverflow(t *testing.T) {
	slots, err := Tile(TileSpec{
		Range:  Interval{Start: At(9, 0), End: At(10, 45)},
		Length: 30,
		Days:   []Day{Friday},
	})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, At(10, 30), slots[2].Times[0].Interval.End)
}

func TestTile_RangeShorterThanLength(t *testing.T) {
	slots, err := Tile(TileSpec{
		Range:  Interval{Start: At(9, 0), End: At(9, 20)},
		Length: 30,
		Days:   []Day{Monday},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestTile_Invalid(t *testing.T) {
	base := TileSpec{Range: Interval{Start: At(9, 0), End: At(11, 0)}, Length: 30, Days: []Day{Monday}}

	noDays := base
	noDays.Days = nil
	_, err := Tile(noDays)
	assert.Error(t, err)

	zeroLen := base
	zeroLen.Length = 0
	_, err = Tile(zeroLen)
	assert.Error(t, err)

	dup := base
	dup.Days = []Day{Monday, Monday}
	_, err = Tile(dup)
	assert.Error(t, err)

	inverted := base
	inverted.Range = Interval{Start: At(11, 0), End: At(9, 0)}
	_, err = Tile(inverted)
	assert.Error(t, err)
}
