// Package file provides file-backed configuration adapters.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk,
// falling back to embedded defaults.
//
// The store uses lazy initialisation: files are only created when first
// accessed, not in the constructor, which keeps testing free of
// unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content
// for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswer: `Answer the question using only the context below. If the context does not contain the answer, say you don't know; do not invent one.

Context:
%s

Question: %s

Answer:`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.corpusqa/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".corpusqa", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default
// files. Falls back to the embedded default if the file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// initialise creates the prompt directory and writes default files for
// prompts that don't have one yet.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := s.promptPath(name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("write default prompt %q: %w", name, err)
			return
		}
	}
}

// loadFromFile reads a prompt file from the prompt directory.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(s.promptPath(name))
	if err != nil {
		return "", err
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file for %q is empty", name)
	}
	return prompt, nil
}

// Reload clears the cache so the next Load re-reads files from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// promptPath returns the file path for a prompt name.
func (s *PromptStore) promptPath(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}
