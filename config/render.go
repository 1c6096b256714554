package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// FileData is a config file and its content, already read.
type FileData struct {
	Name    string
	Content string
}

// Merge combines the given TOML documents, later files overriding earlier
// ones key by key, and returns the merged document.
func Merge(filesData []FileData) (string, error) {
	k := koanf.New(".")
	for _, data := range filesData {
		err := k.Load(rawbytes.Provider([]byte(data.Content)), toml.Parser())
		if err != nil {
			return "", fmt.Errorf("error loading config file %s: %w", data.Name, err)
		}
	}
	marshaled, err := k.Marshal(toml.Parser())
	if err != nil {
		return "", fmt.Errorf("error marshaling merged config: %w", err)
	}
	return string(marshaled), nil
}
