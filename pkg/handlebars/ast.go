package handlebars

// Node is any AST node in a parsed template. The node set is closed: the
// renderer and the whitespace pass both switch exhaustively over it.
type Node interface {
	node()
}

// Program is a sequence of statements; body order is output order.
type Program struct {
	Body []Node

	// chained marks the inverse program of an else-if chain link, which
	// changes how standalone stripping locates the chain's branch bodies.
	chained bool
}

func (*Program) node() {}

// Text is literal text between tags. The original source text is retained so
// standalone-line detection can look at it after strip passes have modified
// Value.
type Text struct {
	Value string

	original      string
	leftStripped  bool
	rightStripped bool
}

func (*Text) node() {}

// Comment renders as nothing.
type Comment struct {
	Value string

	OpenStrip  bool
	CloseStrip bool
}

func (*Comment) node() {}

// Mustache is a {{...}} or {{{...}}} expression tag.
type Mustache struct {
	Path    *Path
	Params  []Expr
	Hash    []HashPair
	Escaped bool

	OpenStrip  bool
	CloseStrip bool
}

func (*Mustache) node() {}

// Block is a {{#name}}...{{/name}} or {{^name}}...{{/name}} construct. For an
// inverted block Program holds the body rendered when the value is falsy.
// An if/else-if chain is a Block whose Inverse program contains a single
// nested Block, recursively.
type Block struct {
	Path        *Path
	Params      []Expr
	Hash        []HashPair
	Program     *Program
	Inverse     *Program
	Inverted    bool
	BlockParams []string

	// Strip flags, one per tilde position: around the opening tag, around
	// the {{else}} tag if any, and around the closing tag.
	OpenStrip         bool // {{~#name}}
	ContentStartStrip bool // {{#name ~}}
	InverseOpenStrip  bool // {{~else}}
	InverseCloseStrip bool // {{else ~}}
	ContentEndStrip   bool // {{~/name}}
	CloseStrip        bool // {{/name ~}}

	// Inline is true when the opening and closing tags share a source line;
	// such blocks are excluded from standalone-line stripping.
	Inline bool
}

func (*Block) node() {}

// Partial is a {{> name}} reference. Context, when present, replaces the
// partial's input context; hash arguments are merged into map contexts.
type Partial struct {
	Name    string
	Context Expr
	Hash    []HashPair

	// Indent is the leading whitespace of a standalone partial's line; it is
	// reapplied to every line the partial emits.
	Indent string

	OpenStrip  bool
	CloseStrip bool
}

func (*Partial) node() {}

// PartialBlock is {{#> name}}...{{/name}}; the body is fallback content
// rendered when the partial name is unresolved.
type PartialBlock struct {
	Name    string
	Context Expr
	Hash    []HashPair
	Program *Program

	OpenStrip         bool
	ContentStartStrip bool
	ContentEndStrip   bool
	CloseStrip        bool
	Inline            bool
}

func (*PartialBlock) node() {}

// InlinePartial is {{#*inline "name"}}...{{/inline}}. It produces no output;
// rendering it registers the program under Name for the rest of the render.
type InlinePartial struct {
	Name    string
	Program *Program

	OpenStrip         bool
	ContentStartStrip bool
	ContentEndStrip   bool
	CloseStrip        bool
	Inline            bool
}

func (*InlinePartial) node() {}

// RawBlock is {{{{name}}}}...{{{{/name}}}}; the content is emitted verbatim
// and never reparsed.
type RawBlock struct {
	Name    string
	Content string
}

func (*RawBlock) node() {}

// Expr is any expression inside a tag.
type Expr interface {
	expr()
}

// Path is a dotted/slashed reference. Parts may begin with ".." entries for
// parent-context traversal; an empty Parts with Depth 0 means the current
// context ('.' or 'this'). Data paths (@root, @index, ...) resolve against
// the data frame instead of the context stack.
type Path struct {
	Parts    []string
	Depth    int // number of leading '..' segments
	Data     bool
	Original string
}

func (*Path) expr() {}

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

func (*StringLit) expr() {}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value float64
}

func (*NumberLit) expr() {}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
}

func (*BoolLit) expr() {}

// SubExpression is a parenthesized helper call usable in parameter position.
type SubExpression struct {
	Path   *Path
	Params []Expr
	Hash   []HashPair
}

func (*SubExpression) expr() {}

// HashPair is a single name=value argument. Order is preserved.
type HashPair struct {
	Key   string
	Value Expr
}

// headName returns the dispatch name of a path: its single identifier part,
// or "" when the path is dotted, data-prefixed, or a context reference.
func headName(p *Path) string {
	if p == nil || p.Data || p.Depth > 0 || len(p.Parts) != 1 {
		return ""
	}
	return p.Parts[0]
}
