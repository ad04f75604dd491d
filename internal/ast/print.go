package ast

import (
	"fmt"
	"strings"
)

// Sprint renders a node as a compact s-expression. The rendering is
// deterministic, so two structurally identical trees print identically; tests
// compare trees through it.
func Sprint(n Node) string {
	var b strings.Builder
	sprint(&b, n)
	return b.String()
}

func sprint(b *strings.Builder, n Node) {
	switch x := n.(type) {
	case *Const:
		fmt.Fprintf(b, "%v:%s", x.Value, x.K)
	case *VarRef:
		fmt.Fprintf(b, "(var %s:%s)", x.Name, x.K)
	case *LocalRef:
		fmt.Fprintf(b, "(local %s:%s)", x.Name, x.K)
	case *Unary:
		fmt.Fprintf(b, "(%s ", x.Op)
		sprint(b, x.X)
		b.WriteByte(')')
	case *Binary:
		fmt.Fprintf(b, "(%s ", x.Op)
		sprint(b, x.L)
		b.WriteByte(' ')
		sprint(b, x.R)
		b.WriteByte(')')
	case *Cond:
		b.WriteString("(if ")
		sprint(b, x.If)
		b.WriteByte(' ')
		sprint(b, x.Then)
		b.WriteByte(' ')
		sprint(b, x.Else)
		b.WriteByte(')')
	case *Call:
		fmt.Fprintf(b, "(call %s", x.Op)
		for _, a := range x.Args {
			b.WriteByte(' ')
			sprint(b, a)
		}
		b.WriteByte(')')
	case *Index:
		if x.Safe {
			b.WriteString("(index! ")
		} else {
			b.WriteString("(index ")
		}
		sprint(b, x.X)
		for _, s := range x.Specs {
			b.WriteByte(' ')
			sprintSpec(b, s)
		}
		b.WriteByte(')')
	case *Let:
		fmt.Fprintf(b, "(let %s ", x.Name)
		sprint(b, x.Init)
		b.WriteByte(' ')
		sprint(b, x.Body)
		b.WriteByte(')')
	case *Lambda:
		b.WriteString("(lambda (")
		for i, p := range x.Params {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(b, "%s:%s", p.Name, p.K)
		}
		b.WriteString(") ")
		sprint(b, x.Body)
		b.WriteByte(')')
	case *Fix:
		fmt.Fprintf(b, "(fix %s ", x.Name)
		sprint(b, x.Fn)
		b.WriteByte(')')
	case *Apply:
		b.WriteString("(apply ")
		sprint(b, x.Fn)
		for _, a := range x.Args {
			b.WriteByte(' ')
			sprint(b, a)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func sprintSpec(b *strings.Builder, s IndexSpec) {
	bound := func(n Node, fromEnd bool) {
		if n == nil {
			b.WriteByte('_')
			return
		}
		if fromEnd {
			b.WriteByte('^')
		}
		sprint(b, n)
	}
	if !s.IsRange {
		bound(s.Lo, s.LoFromEnd)
		return
	}
	bound(s.Lo, s.LoFromEnd)
	b.WriteString("..")
	bound(s.Hi, s.HiFromEnd)
}
