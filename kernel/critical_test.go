package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalSectionBalancedEntryExit(t *testing.T) {
	t.Parallel()
	var cs CriticalSection

	assert.False(t, cs.IsCritical())
	assert.False(t, cs.IsMasked())

	const n = 16
	for i := 0; i < n; i++ {
		cs.Enter()
		assert.True(t, cs.IsCritical())
		assert.True(t, cs.IsMasked())
	}
	for i := 0; i < n; i++ {
		err := cs.Exit()
		require.NoError(t, err)
	}

	assert.False(t, cs.IsCritical())
	assert.False(t, cs.IsMasked())
}

func TestCriticalSectionExitWithoutEnterIsInvalidState(t *testing.T) {
	t.Parallel()
	var cs CriticalSection

	err := cs.Exit()
	require.Error(t, err)
	code, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidState, code)
	assert.Zero(t, cs.depth.Load())
}

func TestCriticalSectionMaskOnlyToggledAtBoundary(t *testing.T) {
	t.Parallel()
	var cs CriticalSection

	cs.Enter()
	assert.True(t, cs.IsMasked())
	cs.Enter() // nested, should not change the already-raised mask
	assert.True(t, cs.IsMasked())

	require.NoError(t, cs.Exit())
	assert.True(t, cs.IsMasked(), "mask must stay raised until outermost exit")

	require.NoError(t, cs.Exit())
	assert.False(t, cs.IsMasked())
}

func TestCriticalSectionReset(t *testing.T) {
	t.Parallel()
	var cs CriticalSection
	cs.Enter()
	cs.Enter()
	cs.reset()
	assert.False(t, cs.IsCritical())
	assert.False(t, cs.IsMasked())
}
