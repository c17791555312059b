package parameter_script

import "path/filepath"

// ScriptBuilderOption is a functional option applied to a script during NewScript.
type ScriptBuilderOption func(*script)

// WithFile loads the script from a file. The file name becomes the script name.
//
// Parameters:
//   - path: the .lua file
//
// Returns:
//   - ScriptBuilderOption: a function that applies the path to a script
func WithFile(path string) ScriptBuilderOption {
	return func(s *script) {
		s.path = path
		s.name = filepath.Base(path)
	}
}

// WithSource loads the script from a string.
//
// Parameters:
//   - source: the Lua source
//
// Returns:
//   - ScriptBuilderOption: a function that applies the source to a script
func WithSource(source string) ScriptBuilderOption {
	return func(s *script) {
		s.source = source
	}
}

// WithName sets the name used in logs and errors.
func WithName(name string) ScriptBuilderOption {
	return func(s *script) {
		s.name = name
	}
}
