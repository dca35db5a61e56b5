package loam

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/stepwise/pkg/definition"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Loader reads a flow definition from a Loam repository.
// Every document is a step, ordered by its "order" field and then by ID.
type Loader struct {
	Repo *loam.TypedRepository[StepMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[StepMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Load opens dir as a read-only Loam repository and builds its definition.
func Load(ctx context.Context, dir string) (*definition.Definition, error) {
	// Strict mode keeps numbers as json.Number so bounds survive unchanged.
	repo, err := loam.Init(dir,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	def, err := New(loam.NewTypedRepository[StepMetadata](repo)).Definition(ctx)
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = filepath.Base(dir)
	}
	return def, nil
}

type orderedStep struct {
	order int
	spec  definition.StepSpec
}

// Definition lists the repository and assembles the flow definition.
func (l *Loader) Definition(ctx context.Context) (*definition.Definition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	def := &definition.Definition{}
	seen := make(map[string]string)
	steps := make([]orderedStep, 0, len(docs))
	var errs []error

	for _, doc := range docs {
		meta := doc.Data
		if meta.Kind == KindFlow {
			if err := applyHeader(def, meta); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			}
			continue
		}

		rawID := meta.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("collision detected: step '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID))
			continue
		}
		seen[id] = doc.ID

		spec, err := buildSpec(id, meta, doc.Content)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %q: %w", id, err))
			continue
		}
		steps = append(steps, orderedStep{order: meta.Order, spec: spec})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("loam repository declares no steps: %w", domain.ErrNoStep)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].order != steps[j].order {
			return steps[i].order < steps[j].order
		}
		return steps[i].spec.ID < steps[j].spec.ID
	})
	for _, s := range steps {
		def.Steps = append(def.Steps, s.spec)
	}
	return def, nil
}

func buildSpec(id string, meta StepMetadata, content string) (definition.StepSpec, error) {
	spec := definition.StepSpec{
		ID:              id,
		Kind:            domain.Kind(meta.Kind),
		Prompt:          strings.TrimSpace(content),
		Subtitle:        meta.Subtitle,
		Optional:        meta.Optional,
		ExclusiveOption: meta.ExclusiveOption,
		RequiredMessage: meta.RequiredMessage,
		When:            meta.When,
		Validator:       meta.Validator,
		Metadata:        meta.Metadata,
	}

	if len(meta.Options) > 0 {
		if err := decode(meta.Options, &spec.Options, "mapstructure"); err != nil {
			return spec, fmt.Errorf("options: %w", err)
		}
	}
	if len(meta.Scale) > 0 {
		spec.Scale = &domain.Scale{}
		if err := decode(meta.Scale, spec.Scale, "mapstructure"); err != nil {
			return spec, fmt.Errorf("scale: %w", err)
		}
	}
	if len(meta.Bounds) > 0 {
		spec.Bounds = &domain.Bounds{}
		if err := decode(meta.Bounds, spec.Bounds, "mapstructure"); err != nil {
			return spec, fmt.Errorf("bounds: %w", err)
		}
	}
	return spec, nil
}

func applyHeader(def *definition.Definition, meta StepMetadata) error {
	def.Name = meta.Name
	def.Title = meta.Title
	def.Expressions = meta.Expressions
	if len(meta.Effects) == 0 {
		return nil
	}
	// Effects share the YAML field names of the single-file format.
	if err := decode(meta.Effects, &def.Effects, "yaml"); err != nil {
		return fmt.Errorf("effects: %w", err)
	}
	return nil
}

// decode converts loosely typed frontmatter (json.Number, []any) into typed values.
func decode(input, output any, tag string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          tag,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
