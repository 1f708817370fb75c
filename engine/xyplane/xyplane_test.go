package xyplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertXRangeYPacksWithoutOverlap(t *testing.T) {
	p := New(4, 256, 64)

	y1, err := p.InsertXRangeY(0, 2, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, 0, y1)

	_, y2, err := p.InsertXRange(1, 3, 64)
	require.NoError(t, err)
	assert.NotEqual(t, y1, y2, "overlapping lifetimes must not share a y-range")
}

func TestInsertXRangeYRejectsOversizeRequest(t *testing.T) {
	p := New(4, 64, 64)

	_, err := p.InsertXRangeY(0, 2, 0, 128)
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestInsertXYRejectsUnalignedOffset(t *testing.T) {
	p := New(4, 256, 64)

	_, err := p.InsertXY(0, 10, 64)
	assert.ErrorIs(t, err, ErrNotAligned)
}

func TestBackupRestoreUndoesInsert(t *testing.T) {
	p := New(4, 256, 64)
	p.Backup()

	_, err := p.InsertXRangeY(0, 2, 0, 64)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Payouts(0))

	p.Restore()
	assert.Empty(t, p.Payouts(0))
}

func TestInsertXRangeReturnsAlignedOffsets(t *testing.T) {
	p := New(4, 256, 64)

	x, y, err := p.InsertXRange(0, 3, 64)
	require.NoError(t, err)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y%64)
}
