package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionDisposition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"validated to executed", DispositionValidated, DispositionExecuted, true},
		{"validated to failed", DispositionValidated, DispositionFailed, true},
		{"validated to filtered", DispositionValidated, DispositionFiltered, true},
		{"validated to excluded", DispositionValidated, DispositionExcluded, false},
		{"validated to rejected", DispositionValidated, DispositionRejected, false},
		{"validated to validated", DispositionValidated, DispositionValidated, false},
		{"excluded is final", DispositionExcluded, DispositionValidated, false},
		{"rejected is final", DispositionRejected, DispositionExecuted, false},
		{"executed is final", DispositionExecuted, DispositionFailed, false},
		{"failed is final", DispositionFailed, DispositionExecuted, false},
		{"filtered is final", DispositionFiltered, DispositionExecuted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionDisposition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalDisposition(t *testing.T) {
	assert.False(t, IsTerminalDisposition(DispositionValidated))
	assert.True(t, IsTerminalDisposition(DispositionExcluded))
	assert.True(t, IsTerminalDisposition(DispositionRejected))
	assert.True(t, IsTerminalDisposition(DispositionExecuted))
	assert.True(t, IsTerminalDisposition(DispositionFailed))
	assert.True(t, IsTerminalDisposition(DispositionFiltered))
}

func TestAgentSubscriptions(t *testing.T) {
	agent := &Agent{
		Categories: []string{"crypto"},
		Symbols:    []string{"BTCUSD", "ETHUSD"},
	}

	assert.True(t, agent.SubscribedToCategory("crypto"))
	assert.False(t, agent.SubscribedToCategory("forex"))
	assert.True(t, agent.SubscribedToSymbol("ETHUSD"))
	assert.False(t, agent.SubscribedToSymbol("EURUSD"))

	// Empty lists subscribe to everything.
	open := &Agent{}
	assert.True(t, open.SubscribedToCategory("forex"))
	assert.True(t, open.SubscribedToSymbol("XAUUSD"))
}
