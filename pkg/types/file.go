package types

// File is one named text file of a generated extension.
type File struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
