package env_mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, ProMode, Parse(" PROD "))
	assert.Equal(t, TestMode, Parse("testing"))
	assert.Equal(t, DevMode, Parse(""))
	assert.Equal(t, DevMode, Parse("staging"))
}

func TestCurrentFollowsEnvironment(t *testing.T) {
	t.Setenv(Key, "production")
	assert.Equal(t, ProMode, Current())

	t.Setenv(Key, "test")
	assert.Equal(t, TestMode, Current())
}

func TestAliases(t *testing.T) {
	assert.Equal(t, "production", ProMode.Aliases()[0])
	assert.Contains(t, DevMode.Aliases(), "dev")
}
