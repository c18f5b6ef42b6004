package send

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendCommand(t *testing.T) {
	cmd := NewSendCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "send [message]", cmd.Use)
	assert.Contains(t, cmd.Aliases, "s")

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.True(t, cmd.HasFlags())
	assert.NotNil(t, cmd.Flags().Lookup("to"))
	assert.NotNil(t, cmd.Flags().Lookup("url-path"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}

func TestSendCommandRejectsEmptyInvocation(t *testing.T) {
	err := sendCmd("", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to send")
}
