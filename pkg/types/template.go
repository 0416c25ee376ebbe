package types

// Template is a pre-built starter extension.
type Template struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description" yaml:"description"`
	InitialPrompt string `json:"initialPrompt" yaml:"initial_prompt"`
	Icon          string `json:"icon,omitempty" yaml:"icon"`
	Order         int    `json:"-" yaml:"order"`
	Files         []File `json:"files" yaml:"files"`
}
