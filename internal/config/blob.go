package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
)

// apiKeySalt is fixed, per spec.md §6/§9: "XOR with fixed salt then
// base-64 — explicitly not encryption". Anyone with file access can recover
// the plaintext; callers must treat the on-disk form accordingly.
const apiKeySalt = "meteor-mcp-gemini"

// obfuscate XOR-folds s against the repeating salt and base64-encodes the
// result. It is its own inverse modulo the base64 framing (see deobfuscate).
func obfuscate(s string) string {
	if s == "" {
		return ""
	}
	out := xorFold([]byte(s))
	return base64.StdEncoding.EncodeToString(out)
}

func deobfuscate(s string) string {
	if s == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		log.Printf("[Config] api key: invalid base64, treating as empty")
		return ""
	}
	return string(xorFold(raw))
}

func xorFold(b []byte) []byte {
	salt := []byte(apiKeySalt)
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ salt[i%len(salt)]
	}
	return out
}

// wireBlob mirrors the on-disk shape of Blob, with api_key carried as its
// obfuscated string form instead of LLMConfig's plaintext APIKey field.
type wireBlob struct {
	Servers []json.RawMessage `json:"servers"`
	LLM     *wireLLM          `json:"gemini"`
}

type wireLLM struct {
	APIKey          string  `json:"api_key"`
	Model           string  `json:"model"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	Enabled         bool    `json:"enabled"`
}

// Serialize encodes a Blob to its on-disk JSON form, obfuscating the API
// key per spec.md §4.1. Never fails on well-formed input.
func Serialize(b Blob) ([]byte, error) {
	wb := wireBlob{
		LLM: &wireLLM{
			APIKey:      obfuscate(b.LLM.APIKey),
			Model:       string(b.LLM.ModelID),
			MaxTokens:   b.LLM.MaxOutputTokens,
			Temperature: b.LLM.Temperature,
			Enabled:     b.LLM.Enabled,
		},
	}
	for _, s := range b.Servers {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("config: serialize server %q: %w", s.Name, err)
		}
		wb.Servers = append(wb.Servers, raw)
	}
	return json.Marshal(wb)
}

// Deserialize decodes the on-disk JSON form back into a Blob. Per spec.md
// §4.1, this never returns a hard error: a malformed server entry is
// skipped with a logged warning, an absent LLM section yields defaults, and
// numeric ranges are clamped. The only failure mode is a structurally
// invalid top-level document (not valid JSON at all).
func Deserialize(data []byte) (Blob, error) {
	var wb wireBlob
	if err := json.Unmarshal(data, &wb); err != nil {
		return Blob{}, fmt.Errorf("config: deserialize: %w", err)
	}

	out := Blob{LLM: DefaultLLMConfig()}

	for i, raw := range wb.Servers {
		var sc ServerConfig
		if err := json.Unmarshal(raw, &sc); err != nil {
			log.Printf("[Config] WARNING: skipping malformed server entry %d: %v", i, err)
			continue
		}
		if err := sc.Validate(); err != nil {
			log.Printf("[Config] WARNING: skipping invalid server entry %d (%q): %v", i, sc.Name, err)
			continue
		}
		out.Servers = append(out.Servers, sc)
	}

	if wb.LLM != nil {
		out.LLM.APIKey = deobfuscate(wb.LLM.APIKey)
		out.LLM.ModelID = ModelID(wb.LLM.Model)
		out.LLM.MaxOutputTokens = wb.LLM.MaxTokens
		out.LLM.Temperature = wb.LLM.Temperature
		out.LLM.Enabled = wb.LLM.Enabled
		out.LLM.Normalize()
	}

	return out, nil
}
