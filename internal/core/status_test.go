package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "unknown", Status(42).String())
	assert.Equal(t, Status(0), StatusPending, "zero value is pending")
}
