// Shared helpers for vapor CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mesh-intelligence/vapor/internal/sqlite"
	"github.com/mesh-intelligence/vapor/pkg/lifecycle"
)

// engine bundles an attached backend with a gateway over its stores.
type engine struct {
	backend *sqlite.Backend
	gateway *lifecycle.Gateway
}

// attachEngine loads the configuration, attaches a SQLite backend, and
// wires a gateway over it. The caller must defer close.
func attachEngine() (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}

	gateway := lifecycle.NewGateway(lifecycle.Stores{
		Messages:  backend.Messages(),
		Resources: backend.Resources(),
		Catalog:   backend.Catalog(),
		Mentions:  backend.Mentions(),
		Reactions: backend.Reactions(),
	}, cfg.EffectiveMaxTTL())

	return &engine{backend: backend, gateway: gateway}, nil
}

func (e *engine) close() {
	e.backend.Detach()
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
