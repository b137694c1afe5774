package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("You are {{.name}}, a {{default \"neutral\" .personality}} trader needing {{join \", \" .needs}}.", map[string]any{
		"name":  "Alice",
		"needs": []string{"tools", "skills"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You are Alice, a neutral trader needing tools, skills.", out)
}

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("no markers & <raw>", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers & <raw>", out)
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.name", nil)
	assert.Error(t, err)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}
