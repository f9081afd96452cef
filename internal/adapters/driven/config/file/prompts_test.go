package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".corpusqa", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Load triggers lazy init
	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "answer.txt"))
	assert.NoError(t, err, "expected answer.txt to exist")
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)

	require.NoError(t, err)
	assert.Contains(t, prompt, "using only the context")
	assert.Contains(t, prompt, "%s") // Format placeholder
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()

	customContent := "My custom prompt:\n%s\n%s"
	err := os.WriteFile(filepath.Join(dir, "answer.txt"), []byte(customContent), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)

	require.NoError(t, err)
	assert.Equal(t, customContent, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptAnswer) // Trigger init
	os.Remove(filepath.Join(dir, "answer.txt"))
	store.Reload()

	prompt, err := store.Load(driven.PromptAnswer)

	require.NoError(t, err)
	assert.Contains(t, prompt, "using only the context")
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Load_CachesResults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt1, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "answer.txt"), []byte("modified content"), 0600)
	require.NoError(t, err)

	prompt2, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	modifiedContent := "modified content: %s %s"
	err = os.WriteFile(filepath.Join(dir, "answer.txt"), []byte(modifiedContent), 0600)
	require.NoError(t, err)

	store.Reload()

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	assert.Equal(t, modifiedContent, prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	prompts := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptAnswer)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			prompts <- prompt
		}()
	}

	wg.Wait()
	close(prompts)

	var first string
	for prompt := range prompts {
		if first == "" {
			first = prompt
		} else {
			assert.Equal(t, first, prompt)
		}
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()

	customContent := "pre-existing custom prompt"
	err := os.WriteFile(filepath.Join(dir, "answer.txt"), []byte(customContent), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptAnswer) // Trigger init

	data, err := os.ReadFile(filepath.Join(dir, "answer.txt"))
	require.NoError(t, err)
	assert.Equal(t, customContent, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "answer.txt"), []byte("\n\n  prompt content  \n\n"), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	assert.Equal(t, "prompt content", prompt)
}
