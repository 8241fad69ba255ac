package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_Window(t *testing.T) {
	tests := []struct {
		name    string
		startIn time.Duration
		want    []entity.ReminderKind
	}{
		{name: "starts in 3 minutes", startIn: 3 * time.Minute, want: []entity.ReminderKind{entity.ReminderFiveMinBefore}},
		{name: "starts in 45 minutes", startIn: 45 * time.Minute, want: []entity.ReminderKind{entity.ReminderHourBefore}},
		{name: "starts in exactly 1 hour", startIn: time.Hour, want: []entity.ReminderKind{entity.ReminderHourBefore}},
		{name: "starts in 24 hours", startIn: 24 * time.Hour, want: []entity.ReminderKind{entity.ReminderDayBefore}},
		{name: "starts in 23 hours", startIn: 23 * time.Hour, want: nil},
		{name: "starts in 2 hours", startIn: 2 * time.Hour, want: nil},
		{name: "already started", startIn: -time.Minute, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := newMockClock()
			store := newMemStore(newEvent("ev-1", baseTime.Add(tt.startIn)))
			notifier := &fakeNotifier{}
			sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 4)

			result := sweeper.Sweep(context.Background(), clk.Now())

			assert.True(t, result.Success)
			assert.Equal(t, len(tt.want), result.Sent)
			for _, kind := range entity.ReminderKinds {
				want := 0
				for _, k := range tt.want {
					if k == kind {
						want = 1
					}
				}
				assert.Equal(t, want, notifier.countKind(kind), kind)
				assert.Equal(t, want, result.ByKind[kind].Sent, kind)
			}
		})
	}
}

func TestSweep_Idempotent(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(
		newEvent("ev-1", baseTime.Add(2*time.Minute)),
		newEvent("ev-2", baseTime.Add(50*time.Minute)),
		newEvent("ev-3", baseTime.Add(24*time.Hour)),
		newEvent("ev-4", baseTime.Add(5*time.Hour)),
	)
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 2)

	first := sweeper.Sweep(context.Background(), clk.Now())
	assert.Equal(t, 3, first.Sent)
	assert.Zero(t, first.Errors)

	second := sweeper.Sweep(context.Background(), clk.Now())
	assert.Zero(t, second.Sent)
	assert.Zero(t, second.Errors)
	assert.Equal(t, 3, notifier.count())
}

func TestSweep_FailuresStayPending(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(newEvent("ev-1", baseTime.Add(50*time.Minute)))
	notifier := &fakeNotifier{err: entity.ErrDeliveryFailed}
	sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 1)

	result := sweeper.Sweep(context.Background(), clk.Now())
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.ByKind[entity.ReminderHourBefore].Errors)
	assert.Equal(t, entity.ReminderPending, store.state("ev-1", entity.ReminderHourBefore))

	notifier.setErr(nil)
	result = sweeper.Sweep(context.Background(), clk.Now())
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, entity.ReminderSent, store.state("ev-1", entity.ReminderHourBefore))
}

func TestSweep_QueryFailureContinues(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(newEvent("ev-1", baseTime.Add(3*time.Minute)))
	store.findErr[entity.ReminderDayBefore] = errStoreDown
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 1)

	result := sweeper.Sweep(context.Background(), clk.Now())
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ByKind[entity.ReminderFiveMinBefore].Sent)
}

func TestSweep_ResetOnEdit(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(newEvent("ev-1", baseTime.Add(time.Hour)))
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 1)

	result := sweeper.Sweep(context.Background(), clk.Now())
	require.Equal(t, 1, result.Sent)

	moved := store.reschedule("ev-1", baseTime.Add(40*time.Minute))
	assert.Equal(t, entity.NewReminders(), moved.Reminders)

	result = sweeper.Sweep(context.Background(), clk.Now())
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 2, notifier.countKind(entity.ReminderHourBefore))
}

func TestSweep_CatchUpAfterDowntime(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(newEvent("ev-1", baseTime.Add(time.Hour)))
	notifier := &fakeNotifier{}
	engine := newTestEngine(store, notifier, clk)
	sweeper := NewSweeper(store, engine, 30*time.Minute, 1)

	// no sweep ran at the fire time; 20 minutes later the hour reminder is still sent
	clk.Add(20 * time.Minute)
	result := sweeper.Sweep(context.Background(), clk.Now())
	assert.Equal(t, 1, result.ByKind[entity.ReminderHourBefore].Sent)

	// 40 minutes late is outside the catch-up window
	store2 := newMemStore(newEvent("ev-2", baseTime.Add(time.Hour)))
	clk2 := newMockClock()
	clk2.Add(40 * time.Minute)
	sweeper2 := NewSweeper(store2, newTestEngine(store2, notifier, clk2), 30*time.Minute, 1)
	result = sweeper2.Sweep(context.Background(), clk2.Now())
	assert.Zero(t, result.ByKind[entity.ReminderHourBefore].Sent)
	assert.Equal(t, entity.ReminderPending, store2.state("ev-2", entity.ReminderHourBefore))
}

func TestSweep_PastWindowNeverSent(t *testing.T) {
	clk := newMockClock()
	store := newMemStore(newEvent("ev-1", baseTime.Add(10*time.Minute)))
	notifier := &fakeNotifier{}
	sweeper := NewSweeper(store, newTestEngine(store, notifier, clk), 30*time.Minute, 1)

	for i := 0; i <= 10; i++ {
		sweeper.Sweep(context.Background(), clk.Now())
		clk.Add(time.Minute)
	}

	assert.Equal(t, 1, notifier.countKind(entity.ReminderFiveMinBefore))
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, entity.ReminderPending, store.state("ev-1", entity.ReminderDayBefore))
	assert.Equal(t, entity.ReminderPending, store.state("ev-1", entity.ReminderHourBefore))
}

func TestCleanup(t *testing.T) {
	clk := newMockClock()
	old := newEvent("old", baseTime.Add(-31*24*time.Hour))
	recent := newEvent("recent", baseTime.Add(-29*24*time.Hour))
	store := newMemStore(old, recent)
	armer := newRecordingArmer()
	cleaner := NewCleaner(store, NewScheduler(armer, clk), 30*24*time.Hour)

	result := cleaner.Cleanup(context.Background(), clk.Now())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, []string{"old"}, armer.disarmed)

	_, err := store.GetByID(context.Background(), "old")
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
	_, err = store.GetByID(context.Background(), "recent")
	assert.NoError(t, err)
}
