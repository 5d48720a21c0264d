package handlebars

import "strings"

// controlWhitespace applies whitespace control to a freshly parsed program:
// explicit ~ strips first, then removal of tags that stand alone on a line.
// It mutates Text nodes in place; Text.original stays untouched so line
// detection is stable across passes.
func controlWhitespace(prog *Program) {
	w := &stripper{}
	w.program(prog)
}

type stripper struct {
	rootSeen bool
}

// stripInfo describes how a statement interacts with surrounding whitespace.
type stripInfo struct {
	open             bool // {{~
	close            bool // ~}}
	openStandalone   bool
	closeStandalone  bool
	inlineStandalone bool
}

func (w *stripper) program(prog *Program) {
	isRoot := !w.rootSeen
	w.rootSeen = true

	body := prog.Body
	for i := range body {
		strip, ok := w.accept(body[i])
		if !ok {
			continue
		}
		prevWS := isPrevWhitespace(body, i, isRoot)
		nextWS := isNextWhitespace(body, i, isRoot)

		openStandalone := strip.openStandalone && prevWS
		closeStandalone := strip.closeStandalone && nextWS
		inlineStandalone := strip.inlineStandalone && prevWS && nextWS

		if strip.close {
			omitRight(body, i, true)
		}
		if strip.open {
			omitLeft(body, i, true)
		}

		if inlineStandalone {
			omitRight(body, i, false)
			if omitLeft(body, i, false) {
				// A standalone partial keeps its line's indentation and
				// reapplies it to each line it emits.
				if pt, isPartial := body[i].(*Partial); isPartial {
					if txt, isText := body[i-1].(*Text); isText {
						pt.Indent = trailingIndent(txt.original)
					}
				}
			}
		}
		if openStandalone {
			if pb := standaloneOpenBody(body[i]); pb != nil {
				omitRight(pb.Body, -1, false)
			}
			omitLeft(body, i, false)
		}
		if closeStandalone {
			omitRight(body, i, false)
			if pb := standaloneCloseBody(body[i]); pb != nil {
				omitLeft(pb.Body, -1, false)
			}
		}
	}
}

// accept handles a statement's own strips and reports how it participates in
// standalone detection. Text and raw blocks return ok=false: they are inert.
func (w *stripper) accept(n Node) (stripInfo, bool) {
	switch n := n.(type) {
	case *Mustache:
		return stripInfo{open: n.OpenStrip, close: n.CloseStrip}, true
	case *Comment:
		return stripInfo{open: n.OpenStrip, close: n.CloseStrip, inlineStandalone: true}, true
	case *Partial:
		return stripInfo{open: n.OpenStrip, close: n.CloseStrip, inlineStandalone: true}, true
	case *Block:
		return w.acceptBlock(n), true
	case *PartialBlock:
		return w.acceptBody(n.Program, n.OpenStrip, n.ContentStartStrip, n.ContentEndStrip, n.CloseStrip), true
	case *InlinePartial:
		return w.acceptBody(n.Program, n.OpenStrip, n.ContentStartStrip, n.ContentEndStrip, n.CloseStrip), true
	default:
		return stripInfo{}, false
	}
}

func (w *stripper) acceptBlock(b *Block) stripInfo {
	w.program(b.Program)
	if b.Inverse != nil {
		w.program(b.Inverse)
	}

	program := b.Program
	inverse := b.Inverse

	// For an else-if chain the branch bodies adjacent to the else tags live
	// inside the nested blocks, not in the chain program itself.
	firstInverse, lastInverse := inverse, inverse
	if inverse != nil && inverse.chained {
		firstInverse = inverse.Body[0].(*Block).Program
		for lastInverse.chained {
			last := lastInverse.Body[len(lastInverse.Body)-1].(*Block)
			lastInverse = last.Program
		}
	}

	strip := stripInfo{
		open:           b.OpenStrip,
		close:          b.CloseStrip,
		openStandalone: isNextWhitespace(program.Body, -1, false),
	}
	if firstInverse != nil {
		strip.closeStandalone = isPrevWhitespace(firstInverse.Body, -1, false)
	} else {
		strip.closeStandalone = isPrevWhitespace(program.Body, -1, false)
	}

	if b.ContentStartStrip {
		omitRight(program.Body, -1, true)
	}
	if inverse != nil {
		if b.InverseOpenStrip {
			omitLeft(program.Body, -1, true)
		}
		if b.InverseCloseStrip {
			omitRight(firstInverse.Body, -1, true)
		}
		if b.ContentEndStrip {
			omitLeft(lastInverse.Body, -1, true)
		}
		// A standalone {{else}} line loses its surrounding newlines.
		if isPrevWhitespace(program.Body, -1, false) && isNextWhitespace(firstInverse.Body, -1, false) {
			omitLeft(program.Body, -1, false)
			omitRight(firstInverse.Body, -1, false)
		}
	} else if b.ContentEndStrip {
		omitLeft(program.Body, -1, true)
	}
	return strip
}

func (w *stripper) acceptBody(prog *Program, open, contentStart, contentEnd, close bool) stripInfo {
	w.program(prog)
	strip := stripInfo{
		open:            open,
		close:           close,
		openStandalone:  isNextWhitespace(prog.Body, -1, false),
		closeStandalone: isPrevWhitespace(prog.Body, -1, false),
	}
	if contentStart {
		omitRight(prog.Body, -1, true)
	}
	if contentEnd {
		omitLeft(prog.Body, -1, true)
	}
	return strip
}

func standaloneOpenBody(n Node) *Program {
	switch n := n.(type) {
	case *Block:
		return n.Program
	case *PartialBlock:
		return n.Program
	case *InlinePartial:
		return n.Program
	}
	return nil
}

func standaloneCloseBody(n Node) *Program {
	switch n := n.(type) {
	case *Block:
		if n.Inverse != nil {
			return n.Inverse
		}
		return n.Program
	case *PartialBlock:
		return n.Program
	case *InlinePartial:
		return n.Program
	}
	return nil
}

// omitRight strips whitespace from the start of the Text node after body[i]
// (i == -1 addresses body[0]). In multiple mode the whole leading whitespace
// run goes; otherwise only the first line's tail, at most once per node.
func omitRight(body []Node, i int, multiple bool) {
	idx := 0
	if i >= 0 {
		idx = i + 1
	}
	if idx >= len(body) {
		return
	}
	txt, ok := body[idx].(*Text)
	if !ok {
		return
	}
	if !multiple && txt.rightStripped {
		return
	}
	before := txt.Value
	if multiple {
		txt.Value = strings.TrimLeft(txt.Value, " \t\r\n")
	} else {
		txt.Value = stripLeadingLine(txt.Value)
	}
	txt.rightStripped = txt.Value != before
}

// omitLeft strips whitespace from the end of the Text node before body[i]
// (i == -1 addresses the last node). It reports whether anything changed.
func omitLeft(body []Node, i int, multiple bool) bool {
	idx := len(body) - 1
	if i >= 0 {
		idx = i - 1
	}
	if idx < 0 || idx >= len(body) {
		return false
	}
	txt, ok := body[idx].(*Text)
	if !ok {
		return false
	}
	if !multiple && txt.leftStripped {
		return false
	}
	before := txt.Value
	if multiple {
		txt.Value = strings.TrimRight(txt.Value, " \t\r\n")
	} else {
		txt.Value = strings.TrimRight(txt.Value, " \t")
	}
	txt.leftStripped = txt.Value != before
	return txt.leftStripped
}

// stripLeadingLine removes leading spaces and tabs and at most one newline.
func stripLeadingLine(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i < len(s) && s[i] == '\r' {
		i++
	}
	if i < len(s) && s[i] == '\n' {
		i++
	}
	return s[i:]
}

func trailingIndent(s string) string {
	j := len(s)
	for j > 0 && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[j:]
}

// isPrevWhitespace reports whether the text before body[i] ends at a line
// boundary (i == -1 means the end of the body). At the root a missing or
// all-whitespace neighbour counts as a boundary.
func isPrevWhitespace(body []Node, i int, isRoot bool) bool {
	if i < 0 {
		i = len(body)
	}
	if i-1 < 0 {
		return isRoot
	}
	txt, ok := body[i-1].(*Text)
	if !ok {
		return false
	}
	if i-2 >= 0 || !isRoot {
		return endsOnNewline(txt.original, false)
	}
	return endsOnNewline(txt.original, true)
}

// isNextWhitespace is the mirror: does the text after body[i] start with a
// line boundary (i == -1 means the start of the body).
func isNextWhitespace(body []Node, i int, isRoot bool) bool {
	next := i + 1
	if next >= len(body) {
		return isRoot
	}
	txt, ok := body[next].(*Text)
	if !ok {
		return false
	}
	if next+1 < len(body) || !isRoot {
		return startsOnNewline(txt.original, false)
	}
	return startsOnNewline(txt.original, true)
}

func isStripWS(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// endsOnNewline reports whether s ends with a newline followed only by
// whitespace. With orStart set, an all-whitespace s also qualifies.
func endsOnNewline(s string, orStart bool) bool {
	j := len(s)
	for j > 0 && isStripWS(s[j-1]) {
		if s[j-1] == '\n' {
			return true
		}
		j--
	}
	return orStart && j == 0
}

// startsOnNewline reports whether s begins with whitespace containing a
// newline. With orEnd set, an all-whitespace s also qualifies.
func startsOnNewline(s string, orEnd bool) bool {
	j := 0
	for ; j < len(s) && isStripWS(s[j]); j++ {
		if s[j] == '\n' {
			return true
		}
	}
	return orEnd && j == len(s)
}
