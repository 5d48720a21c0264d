package handlebars

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk visits n and all statements beneath it, depth first.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *Program:
		for _, c := range t.Body {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *Block:
		if t.Program != nil {
			if err := Walk(v, t.Program); err != nil {
				return err
			}
		}
		if t.Inverse != nil {
			if err := Walk(v, t.Inverse); err != nil {
				return err
			}
		}
	case *PartialBlock:
		if err := Walk(v, t.Program); err != nil {
			return err
		}
	case *InlinePartial:
		if err := Walk(v, t.Program); err != nil {
			return err
		}
	}
	return nil
}

// Pretty returns a line-oriented string representation of the AST.
func Pretty(prog *Program) string {
	var buf bytes.Buffer
	ppProgram(&buf, 0, prog)
	return buf.String()
}

func ppProgram(buf *bytes.Buffer, indent int, prog *Program) {
	for _, n := range prog.Body {
		ppNode(buf, indent, n)
	}
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *Text:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Value)
	case *Comment:
		ind()
		fmt.Fprintf(buf, "Comment(%q)\n", t.Value)
	case *RawBlock:
		ind()
		fmt.Fprintf(buf, "RawBlock(%s, %q)\n", t.Name, t.Content)
	case *Mustache:
		ind()
		if t.Escaped {
			fmt.Fprintf(buf, "Mustache(%s)\n", callString(t.Path, t.Params, t.Hash))
		} else {
			fmt.Fprintf(buf, "Mustache(%s, raw)\n", callString(t.Path, t.Params, t.Hash))
		}
	case *Block:
		ind()
		kind := "Block"
		if t.Inverted {
			kind = "InvertedBlock"
		}
		fmt.Fprintf(buf, "%s(%s", kind, callString(t.Path, t.Params, t.Hash))
		if len(t.BlockParams) > 0 {
			fmt.Fprintf(buf, " as |%s|", strings.Join(t.BlockParams, " "))
		}
		buf.WriteString(")\n")
		ppProgram(buf, indent+2, t.Program)
		if t.Inverse != nil {
			ind()
			buf.WriteString("Else\n")
			ppProgram(buf, indent+2, t.Inverse)
		}
	case *Partial:
		ind()
		fmt.Fprintf(buf, "Partial(%s)\n", t.Name)
	case *PartialBlock:
		ind()
		fmt.Fprintf(buf, "PartialBlock(%s)\n", t.Name)
		ppProgram(buf, indent+2, t.Program)
	case *InlinePartial:
		ind()
		fmt.Fprintf(buf, "InlinePartial(%q)\n", t.Name)
		ppProgram(buf, indent+2, t.Program)
	}
}

func callString(path *Path, params []Expr, hash []HashPair) string {
	parts := []string{path.Original}
	for _, p := range params {
		parts = append(parts, exprString(p))
	}
	for _, hp := range hash {
		parts = append(parts, hp.Key+"="+exprString(hp.Value))
	}
	return strings.Join(parts, " ")
}

func exprString(e Expr) string {
	switch e := e.(type) {
	case *Path:
		return e.Original
	case *StringLit:
		return strconv.Quote(e.Value)
	case *NumberLit:
		return strconv.FormatFloat(e.Value, 'f', -1, 64)
	case *BoolLit:
		return strconv.FormatBool(e.Value)
	case *SubExpression:
		return "(" + callString(e.Path, e.Params, e.Hash) + ")"
	}
	return fmt.Sprintf("%v", e)
}
