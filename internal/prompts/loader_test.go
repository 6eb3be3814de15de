package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("scoring.json", "score-resume")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "{{.Resume}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("scoring.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("scoring.json", "score-resume")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	template := "Score this:\n{{.Resume}}\nLanguage: {{.Language}}"
	data := map[string]string{
		"Resume":   "[NAME]\nBerufserfahrung",
		"Language": "de",
	}

	result := Format(template, data)
	assert.Equal(t, "Score this:\n[NAME]\nBerufserfahrung\nLanguage: de", result)
}

func TestOraclePromptsKeepPlaceholders(t *testing.T) {
	ClearCache()

	for _, file := range []string{"scoring.json", "optimizing.json"} {
		keys, err := List(file)
		require.NoError(t, err)
		for _, key := range keys {
			prompt := MustGet(file, key)
			assert.NotEmpty(t, prompt, "%s/%s", file, key)
		}
	}

	rewrite := MustGet("optimizing.json", "optimize-resume")
	for _, p := range []string{"[NAME]", "[EMAIL]", "[PHONE]", "[ADDRESS]"} {
		assert.Contains(t, rewrite, p)
	}
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("optimizing.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"optimize-resume"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	// First call loads from file
	prompt1, err := Get("scoring.json", "score-resume")
	require.NoError(t, err)

	// Second call should use cache
	prompt2, err := Get("scoring.json", "score-resume")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestFormat_ValuesAreNotExpanded(t *testing.T) {
	result := Format("{{.Resume}} / {{.Language}}", map[string]string{
		"Resume":   "literal {{.Language}}",
		"Language": "de",
	})
	assert.Equal(t, "literal {{.Language}} / de", result)
}

func TestRender(t *testing.T) {
	ClearCache()

	out, err := Render("scoring.json", "score-resume", map[string]string{"Resume": "[NAME]\nProfil"})
	require.NoError(t, err)
	assert.Contains(t, out, "[NAME]\nProfil")
	assert.NotContains(t, out, "{{.Resume}}")

	_, err = Render("scoring.json", "missing", nil)
	assert.Error(t, err)
}
