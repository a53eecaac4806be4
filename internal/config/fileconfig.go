package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSeed mirrors Blob but in a more hand-editable shape: servers keyed by
// name (map) rather than a list carrying their own name field, and a
// plaintext api key (this file is meant for local dev bootstrapping before
// any GUI has ever written an obfuscated blob).
type yamlSeed struct {
	Servers map[string]yamlServer `yaml:"servers"`
	Gemini  yamlGemini            `yaml:"gemini"`
}

type yamlServer struct {
	Transport   string            `yaml:"transport"`
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	WorkingDir  string            `yaml:"workingDirectory"`
	URL         string            `yaml:"url"`
	Env         map[string]string `yaml:"env"`
	AutoConnect bool              `yaml:"autoConnect"`
	TimeoutMs   int               `yaml:"timeout"`
}

type yamlGemini struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Enabled     bool    `yaml:"enabled"`
}

// LoadSeedFile parses a YAML seed document into a Blob, for headless/dev
// bootstrapping before the host GUI has ever written a blob. Server entries
// that fail ServerConfig.Validate are skipped with a warning; an entry that
// does not decode as YAML fails the whole file with an error.
func LoadSeedFile(path string) (Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("config: read seed file %q: %w", path, err)
	}

	var seed yamlSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Blob{}, fmt.Errorf("config: parse seed file %q: %w", path, err)
	}

	out := Blob{LLM: DefaultLLMConfig()}
	for name, s := range seed.Servers {
		sc := ServerConfig{
			Name:        name,
			Transport:   Transport(s.Transport),
			Command:     s.Command,
			Args:        s.Args,
			WorkingDir:  s.WorkingDir,
			URL:         s.URL,
			Env:         s.Env,
			AutoConnect: s.AutoConnect,
			TimeoutMs:   s.TimeoutMs,
		}
		if err := sc.Validate(); err != nil {
			fmt.Printf("[Config] WARNING: seed file: skipping server %q: %v\n", name, err)
			continue
		}
		out.Servers = append(out.Servers, sc)
	}

	out.LLM.APIKey = seed.Gemini.APIKey
	out.LLM.ModelID = ModelID(seed.Gemini.Model)
	out.LLM.MaxOutputTokens = seed.Gemini.MaxTokens
	out.LLM.Temperature = seed.Gemini.Temperature
	out.LLM.Enabled = seed.Gemini.Enabled
	out.LLM.Normalize()

	return out, nil
}
