package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvBool(t *testing.T) {
	Env = map[string]string{"A": "yes", "B": "OFF", "C": "maybe"}
	defer func() { Env = nil }()

	assert.True(t, GetEnvBool("A", false))
	assert.False(t, GetEnvBool("B", true))
	assert.True(t, GetEnvBool("C", true))
	assert.False(t, GetEnvBool("URBANFIX_UNSET_FLAG", false))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"N": " 7 ", "BAD": "seven"}
	defer func() { Env = nil }()

	assert.Equal(t, 7, GetEnvInt("N", 1))
	assert.Equal(t, 1, GetEnvInt("BAD", 1))
	assert.Equal(t, 3, GetEnvInt("URBANFIX_UNSET_INT", 3))
}
