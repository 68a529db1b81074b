package dsl

// Definition is the top-level YAML workflow document.
type Definition struct {
	// Version of the definition schema.
	Version string `yaml:"version" json:"version"`
	// Name of the workflow.
	Name string `yaml:"name" json:"name"`
	// Description of the workflow.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Variables usable in ${name} interpolation inside string config
	// values.
	Variables map[string]VariableDef `yaml:"variables,omitempty" json:"variables,omitempty"`
	// Steps of the workflow.
	Steps []StepDef `yaml:"steps" json:"steps"`
	// Connections wiring output ports to input ports.
	Connections []ConnectionDef `yaml:"connections,omitempty" json:"connections,omitempty"`
	// Metadata carries free-form workflow information.
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// VariableDef declares a named interpolation variable.
type VariableDef struct {
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// StepDef declares one step.
type StepDef struct {
	ID      string         `yaml:"id" json:"id"`
	Kind    string         `yaml:"kind" json:"kind"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Inputs  []string       `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []string       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// ConnectionDef declares one port-labeled edge.
type ConnectionDef struct {
	From     string `yaml:"from" json:"from"`
	FromPort string `yaml:"from_port" json:"from_port"`
	To       string `yaml:"to" json:"to"`
	ToPort   string `yaml:"to_port" json:"to_port"`
}
