package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	loamAdapter "github.com/aretw0/stepwise/pkg/adapters/loam"
	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/observability"
)

// DefaultFlow is the built-in flow used when no source is given.
const DefaultFlow = "mood-checkin"

// LoadDefinition resolves a flow source. An existing directory is read as a
// Markdown step catalogue, an existing file as a YAML definition, and
// anything else as the name of a built-in flow.
func LoadDefinition(source string) (*definition.Definition, error) {
	if source == "" {
		source = DefaultFlow
	}

	info, err := os.Stat(source)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open flow: %w", err)
		}
		return definitions.Load(source)
	}

	absPath, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	var def *definition.Definition
	if info.IsDir() {
		def, err = loamAdapter.Load(context.Background(), absPath)
	} else {
		def, err = definition.LoadFile(absPath)
	}
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}
	return def, nil
}

// EngineOptions configures NewEngine.
type EngineOptions struct {
	Logger  *slog.Logger
	Debug   bool
	Metrics *observability.Metrics
	Backend *Backend
}

// NewEngine compiles the definition with the CLI's hooks and backend.
func NewEngine(def *definition.Definition, opts EngineOptions) (*stepwise.Engine, error) {
	var engineOpts []stepwise.Option
	if opts.Logger != nil {
		engineOpts = append(engineOpts, stepwise.WithLogger(opts.Logger))
		if opts.Debug {
			engineOpts = append(engineOpts, stepwise.WithLifecycleHooks(observability.LogHooks(opts.Logger)))
		}
	}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, stepwise.WithLifecycleHooks(opts.Metrics.Hooks(def.Name)))
	}
	if opts.Backend != nil {
		engineOpts = append(engineOpts, stepwise.WithStore(opts.Backend.Store))
		if opts.Backend.Sink != nil {
			engineOpts = append(engineOpts, stepwise.WithSink(opts.Backend.Sink))
		}
	}

	engine, err := stepwise.Compile(def, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing stepwise: %w", err)
	}
	return engine, nil
}
