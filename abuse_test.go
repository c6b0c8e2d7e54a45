package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFaultsFlagsAboveThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	atLimit, _ := seedHost(t, env.s, "atlimit.example.org")
	over, _ := seedHost(t, env.s, "over.example.org")
	mutateHost(t, env.s, atLimit.ID, func(h *hostModel) { h.ClientFaults = 10 })
	mutateHost(t, env.s, over.ID, func(h *hostModel) { h.ClientFaults = 11 })

	report, err := env.s.checkFaults(ctx, faultOptions{FlagAbuse: 10, Notify: true})
	require.NoError(t, err)
	require.Len(t, report.Actions, 1)
	assert.Equal(t, "over.example.org.", report.Actions[0].Item)
	assert.Equal(t, "abuse", report.Actions[0].Action)

	got := reloadHost(t, env.s, "over.example.org")
	assert.True(t, got.Abuse)
	assert.Zero(t, got.ClientFaults)

	got = reloadHost(t, env.s, "atlimit.example.org")
	assert.False(t, got.Abuse)
	assert.Equal(t, 10, got.ClientFaults)

	notes := env.notes.all()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Body, "11")
}

func TestCheckFaultsDisabledFlagging(t *testing.T) {
	env := newTestEnv(t)
	h, _ := seedHost(t, env.s, "foo.example.org")
	mutateHost(t, env.s, h.ID, func(h *hostModel) { h.ClientFaults = 100 })

	report, err := env.s.checkFaults(context.Background(), faultOptions{FlagAbuse: -1})
	require.NoError(t, err)
	assert.Empty(t, report.Actions)
	assert.False(t, reloadHost(t, env.s, "foo.example.org").Abuse)
}

func TestCheckFaultsResets(t *testing.T) {
	env := newTestEnv(t)
	h, _ := seedHost(t, env.s, "foo.example.org")
	mutateHost(t, env.s, h.ID, func(h *hostModel) {
		h.ClientFaults = 3
		h.ServerFaults = 4
		h.APIAuthFaults = 5
		h.Available = false
		h.Abuse = true
		h.AbuseBlocked = true
	})

	report, err := env.s.checkFaults(context.Background(), faultOptions{
		FlagAbuse:         -1,
		ShowClient:        true,
		ShowServer:        true,
		ResetClient:       true,
		ResetServer:       true,
		ResetAPIAuth:      true,
		ResetAvailable:    true,
		ResetAbuse:        true,
		ResetAbuseBlocked: true,
	})
	require.NoError(t, err)
	require.Len(t, report.Actions, 2)
	assert.Equal(t, "client-faults", report.Actions[0].Action)
	assert.Equal(t, "server-faults", report.Actions[1].Action)

	got := reloadHost(t, env.s, "foo.example.org")
	assert.Zero(t, got.ClientFaults)
	assert.Zero(t, got.ServerFaults)
	assert.Zero(t, got.APIAuthFaults)
	assert.True(t, got.Available)
	assert.False(t, got.Abuse)
	assert.False(t, got.AbuseBlocked)
}
