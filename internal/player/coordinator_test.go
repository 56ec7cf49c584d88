package player

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player/playertest"
)

func newTestCoordinator(opts ...Option) (*Coordinator, *playertest.FakeElement, *playertest.FakeElement) {
	local := playertest.New("uploads/track.mp3")
	remote := playertest.New("dQw4w9WgXcQ")
	return NewCoordinator(local, remote, opts...), local, remote
}

func TestSwitchSourcePausesPreviousAndPlaysNew(t *testing.T) {
	ctx := context.Background()
	c, local, remote := newTestCoordinator()

	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	require.Equal(t, 1, local.Plays)
	local.Reset()

	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	assert.Equal(t, 1, local.Pauses, "previous source paused exactly once")
	assert.Equal(t, 0, local.Plays)
	assert.Equal(t, 1, remote.Plays, "new source started once")
	assert.Equal(t, model.SourceRemote, c.Active())
	assert.True(t, remote.Playing())
	assert.False(t, local.Playing())
}

func TestSwitchSourceToActiveIsNoop(t *testing.T) {
	ctx := context.Background()
	c, local, _ := newTestCoordinator()

	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	local.Reset()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))

	plays, pauses := local.Counts()
	assert.Zero(t, plays)
	assert.Zero(t, pauses)
}

func TestSwitchSourceWhileSuspendedDoesNotPlay(t *testing.T) {
	ctx := context.Background()
	c, _, remote := newTestCoordinator()

	c.OnExternalStateChange(ctx, model.StatePausing)
	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	assert.Zero(t, remote.Plays)
	assert.Equal(t, []int{defaultVolume}, remote.Volumes, "volume applied on activation")
}

func TestMutualExclusionAcrossSequence(t *testing.T) {
	ctx := context.Background()
	c, local, remote := newTestCoordinator()

	steps := []func(){
		func() { _ = c.SwitchSource(ctx, model.SourceLocal) },
		func() { c.PlayActive(ctx) },
		func() { _ = c.SwitchSource(ctx, model.SourceRemote) },
		func() { c.OnExternalStateChange(ctx, model.StateManualPause) },
		func() { c.OnExternalStateChange(ctx, model.StateActive) },
		func() { _ = c.SwitchSource(ctx, model.SourceLocal) },
		func() { c.TogglePlay(ctx) },
		func() { c.TogglePlay(ctx) },
		func() { _ = c.SwitchSource(ctx, model.SourceRemote) },
	}
	for i, step := range steps {
		step()
		assert.False(t, local.Playing() && remote.Playing(), "both sources playing after step %d", i)
	}
}

func TestExternalStateChangeIsEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	c, _, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	remote.Reset()

	c.OnExternalStateChange(ctx, model.StateActive)
	c.OnExternalStateChange(ctx, model.StateActive)
	plays, pauses := remote.Counts()
	assert.Zero(t, plays)
	assert.Zero(t, pauses)

	c.OnExternalStateChange(ctx, model.StatePausing)
	c.OnExternalStateChange(ctx, model.StatePausing)
	c.OnExternalStateChange(ctx, model.StateDisabled)
	plays, pauses = remote.Counts()
	assert.Zero(t, plays)
	assert.Equal(t, 1, pauses)

	c.OnExternalStateChange(ctx, model.StateActive)
	c.OnExternalStateChange(ctx, model.StateActive)
	plays, _ = remote.Counts()
	assert.Equal(t, 1, plays)
}

func TestPlayWithoutContentIsNoop(t *testing.T) {
	ctx := context.Background()
	local := playertest.New("")
	c := NewCoordinator(local, playertest.New(""))

	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	c.PlayActive(ctx)
	c.PauseActive(ctx)
	plays, pauses := local.Counts()
	assert.Zero(t, plays)
	assert.Zero(t, pauses)
	assert.ErrorIs(t, c.Seek(ctx, 10), ErrNoContent)
	assert.False(t, c.Loaded())
}

func TestRejectedPlayIsSwallowed(t *testing.T) {
	ctx := context.Background()
	c, local, _ := newTestCoordinator()
	local.RejectPlay = true

	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	assert.Equal(t, 1, local.Plays)
	assert.True(t, c.Status().Playing, "intent still reads playing")

	c.OnNativeStatus(ctx, model.SourceLocal, model.NativePaused)
	assert.False(t, c.Status().Playing)
}

func TestInterruptAndResume(t *testing.T) {
	ctx := context.Background()
	c, _, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	remote.SetPosition(42)

	snap := c.Snapshot()
	assert.Equal(t, model.SavedPlaybackSnapshot{
		WasPlaying:      true,
		SourceKind:      model.SourceRemote,
		PositionSeconds: 42,
		Identifier:      "dQw4w9WgXcQ",
	}, snap)

	remote.Reset()
	c.Interrupt(ctx)
	assert.True(t, c.Interrupted())
	assert.Equal(t, 1, remote.Pauses)

	// upstream flapping during the interrupt must not start playback
	c.OnExternalStateChange(ctx, model.StatePausing)
	c.OnExternalStateChange(ctx, model.StateActive)
	assert.Zero(t, remote.Plays)

	remote.SetPosition(99)
	c.ResumeFrom(ctx, &snap)
	assert.False(t, c.Interrupted())
	assert.Equal(t, []float64{42}, remote.Seeks)
	assert.Equal(t, 1, remote.Plays)
}

func TestResumeWaitsForUpstream(t *testing.T) {
	ctx := context.Background()
	c, local, _ := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	snap := c.Snapshot()

	c.Interrupt(ctx)
	c.OnExternalStateChange(ctx, model.StateManualPause)
	local.Reset()

	c.ResumeFrom(ctx, &snap)
	assert.Zero(t, local.Plays)

	c.OnExternalStateChange(ctx, model.StateActive)
	assert.Equal(t, 1, local.Plays)
}

func TestResumeWithoutSnapshotDoesNotPlay(t *testing.T) {
	ctx := context.Background()
	c, local, _ := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	c.Interrupt(ctx)
	local.Reset()

	c.ResumeFrom(ctx, nil)
	c.ResumeFrom(ctx, &model.SavedPlaybackSnapshot{WasPlaying: false, SourceKind: model.SourceLocal})
	assert.Zero(t, local.Plays)
}

func TestRestoreSkipsSeekWhenSourceChanged(t *testing.T) {
	ctx := context.Background()
	c, _, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	remote.Reset()

	c.Restore(ctx, model.SavedPlaybackSnapshot{WasPlaying: true, SourceKind: model.SourceLocal, PositionSeconds: 12})
	assert.Empty(t, remote.Seeks)
	assert.Equal(t, 1, remote.Plays)
}

func TestStrayNativePlaybackIsPaused(t *testing.T) {
	ctx := context.Background()
	c, local, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	local.Reset()

	c.OnNativeStatus(ctx, model.SourceLocal, model.NativePlaying)
	assert.Equal(t, 1, local.Pauses)

	c.Interrupt(ctx)
	remote.Reset()
	c.OnNativeStatus(ctx, model.SourceRemote, model.NativePlaying)
	assert.Equal(t, 1, remote.Pauses)
	assert.False(t, c.Status().Playing)
}

func TestVolumeForwardedToActiveAndPersisted(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	c, local, remote := newTestCoordinator(WithStore(store))
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))

	c.SetVolume(ctx, 130)
	c.SetMuted(ctx, true)
	assert.Equal(t, []int{defaultVolume, 100}, local.Volumes)
	assert.Empty(t, remote.Volumes, "inactive source untouched")

	require.NoError(t, c.SwitchSource(ctx, model.SourceRemote))
	assert.Equal(t, []int{100}, remote.Volumes)
	assert.Equal(t, []bool{true}, remote.Mutes)

	restored, _, _ := newTestCoordinator(WithStore(store))
	restored.LoadVolume(ctx)
	assert.Equal(t, 100, restored.Status().Volume)
	assert.True(t, restored.Status().Muted)
}

func TestLoadSwitchesAndStarts(t *testing.T) {
	ctx := context.Background()
	c, local, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))

	require.NoError(t, c.Load(ctx, model.SourceRemote, "M7lc1UVf-VE"))
	assert.Equal(t, model.SourceRemote, c.Active())
	assert.Equal(t, "M7lc1UVf-VE", remote.Identifier())
	assert.Equal(t, 1, remote.Plays)
	assert.False(t, local.Playing())

	assert.ErrorIs(t, c.SwitchSource(ctx, "tape"), ErrUnknownSource)
}

func TestEndedTrackRestartsWhenLooping(t *testing.T) {
	ctx := context.Background()
	c, local, remote := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	local.SetPosition(183)
	local.Reset()

	c.OnNativeStatus(ctx, model.SourceLocal, model.NativeEnded)
	assert.Zero(t, local.Plays, "no restart while loop mode is off")
	assert.False(t, c.Status().Playing)

	c.SetLooping(true)
	assert.True(t, c.Status().Looping)
	c.OnNativeStatus(ctx, model.SourceLocal, model.NativeEnded)
	assert.Equal(t, []float64{0}, local.Seeks)
	assert.Equal(t, 1, local.Plays)
	assert.True(t, c.Status().Playing)

	// an inactive source ending never restarts
	c.OnNativeStatus(ctx, model.SourceRemote, model.NativeEnded)
	assert.Zero(t, remote.Plays)
}

func TestLoopingHeldWhileSuspended(t *testing.T) {
	ctx := context.Background()
	c, local, _ := newTestCoordinator()
	require.NoError(t, c.SwitchSource(ctx, model.SourceLocal))
	c.SetLooping(true)

	c.Interrupt(ctx)
	local.Reset()
	c.OnNativeStatus(ctx, model.SourceLocal, model.NativeEnded)
	assert.Zero(t, local.Plays)
	assert.Empty(t, local.Seeks)

	c.ResumeFrom(ctx, nil)
	c.OnExternalStateChange(ctx, model.StateDisabled)
	local.Reset()
	c.OnNativeStatus(ctx, model.SourceLocal, model.NativeEnded)
	assert.Zero(t, local.Plays)
}
