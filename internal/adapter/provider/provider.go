package provider

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/semmidev/vaultkeep/internal/config"
	"github.com/semmidev/vaultkeep/internal/domain"
)

// New builds the source described by cfg.
func New(cfg *config.SourceConfig) (domain.Source, error) {
	switch cfg.Type {
	case config.SourceFile:
		return NewFile(cfg), nil
	case config.SourceCommand:
		return NewCommand(cfg), nil
	}
	return nil, domain.NewConfigurationError(fmt.Sprintf("unsupported source type: %s", cfg.Type), nil)
}

// decode parses a single JSON document, keeping numbers as json.Number so large
// integers survive a later re-encode unchanged.
func decode(raw []byte) (any, error) {
	if !json.Valid(raw) {
		return nil, errors.New("malformed JSON")
	}
	var data any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
