package themes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTheme(t *testing.T) {
	assert.Equal(t, "catppuccin-mocha", GetTheme("catppuccin-mocha").Name)
	assert.Equal(t, "ledger", GetTheme("ledger").Name)
	assert.Equal(t, "default", GetTheme("neon").Name)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"catppuccin-mocha", "default", "ledger"}, Names())
}
