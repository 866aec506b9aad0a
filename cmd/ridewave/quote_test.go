package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"quote", "10"})
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "VEHICLE")
	assert.Regexp(t, `bike\s+1600 INR`, got)
	assert.Regexp(t, `cabPremium\s+3200 INR`, got)
}

func TestQuoteCommandRejectsBadDistance(t *testing.T) {
	for _, arg := range []string{"abc", "-3"} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"quote", "--", arg})
		assert.Error(t, cmd.Execute(), arg)
	}
}
