// Package prompt loads the conversation system prompt. The default prompt
// ships embedded in the binary; deployments can override it with a file on
// disk without rebuilding.
package prompt

import (
	_ "embed"
	"log"
	"os"
)

// defaultPrompt is the embedded system prompt. It carries the documents
// marker pair the context core splits on.
//
//go:embed system_prompt.md
var defaultPrompt string

// Load returns the system prompt. When path is non-empty and readable its
// contents win; otherwise the embedded default is used. An override without
// a documents section is still accepted — the context core repairs it at
// conversation construction.
func Load(path string) string {
	if path == "" {
		return defaultPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[Prompt] Cannot read override %s, using embedded default: %v", path, err)
		return defaultPrompt
	}
	if len(data) == 0 {
		log.Printf("[Prompt] Override %s is empty, using embedded default", path)
		return defaultPrompt
	}
	log.Printf("[Prompt] Loaded system prompt override from %s", path)
	return string(data)
}

// Default returns the embedded prompt, for tests and health reporting.
func Default() string { return defaultPrompt }
