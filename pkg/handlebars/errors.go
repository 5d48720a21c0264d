package handlebars

import "fmt"

// SyntaxError is a fatal parse error. No partial AST accompanies it.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template:%d:%d: %s", e.Line, e.Col, e.Msg)
}

// PathError reports a path that failed to resolve while rendering in strict
// mode. Path is the original dotted form as written in the template.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("unresolved path %q in strict mode", e.Path)
}

// ErrPartialNotFound reports an unregistered partial name.
type ErrPartialNotFound struct {
	Name string
}

func (e ErrPartialNotFound) Error() string {
	return "partial not found: " + e.Name
}
