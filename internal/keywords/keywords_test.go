package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	assert.Equal(t, []string{"basecomponent"}, Extract("How does BaseComponent work?"))
	assert.Equal(t, []string{"button", "styles", "theme"}, Extract("Where are the button styles in the theme, the button?"))
	assert.Empty(t, Extract("how is it on"))
}

func TestPascalCase(t *testing.T) {
	assert.Equal(t, []string{"BaseComponent"}, PascalCase("How does BaseComponent work?"))
	assert.Equal(t, []string{"Button", "WmLabel"}, PascalCase("What Button and WmLabel share? Button again"))
	assert.Empty(t, PascalCase("what happens when I tap"))
}

func TestSplitIdentifier(t *testing.T) {
	assert.Equal(t, []string{"base", "component"}, SplitIdentifier("BaseComponent"))
	assert.Equal(t, []string{"wm", "label"}, SplitIdentifier("WmLabel"))
	assert.Equal(t, []string{"http", "service"}, SplitIdentifier("HTTPService"))
	assert.Equal(t, []string{"button", "component", "tsx"}, SplitIdentifier("button.component.tsx"))
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("How"))
	assert.False(t, IsStopword("button"))
}
