package loam

// StepMetadata is the frontmatter of a step document.
// The Markdown body becomes the step prompt.
//
// A document with kind "flow" is the catalogue header instead of a step and
// carries the flow-level fields (title, expressions, effects).
type StepMetadata struct {
	ID              string            `json:"id" mapstructure:"id"`
	Kind            string            `json:"kind" mapstructure:"kind"`
	Order           int               `json:"order" mapstructure:"order"`
	Subtitle        string            `json:"subtitle" mapstructure:"subtitle"`
	Options         []any             `json:"options" mapstructure:"options"`
	Scale           map[string]any    `json:"scale" mapstructure:"scale"`
	Bounds          map[string]any    `json:"bounds" mapstructure:"bounds"`
	Optional        bool              `json:"optional" mapstructure:"optional"`
	ExclusiveOption string            `json:"exclusive_option" mapstructure:"exclusive_option"`
	RequiredMessage string            `json:"required_message" mapstructure:"required_message"`
	When            string            `json:"when" mapstructure:"when"`
	Validator       string            `json:"validator" mapstructure:"validator"`
	Metadata        map[string]string `json:"metadata" mapstructure:"metadata"`

	// Header fields
	Name        string         `json:"name" mapstructure:"name"`
	Title       string         `json:"title" mapstructure:"title"`
	Expressions string         `json:"expressions" mapstructure:"expressions"`
	Effects     map[string]any `json:"effects" mapstructure:"effects"`
}

// KindFlow marks the catalogue header document.
const KindFlow = "flow"
