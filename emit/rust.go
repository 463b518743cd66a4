package emit

import (
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/plan"
)

// Rust renders p as an init function returning one static tuple per layout
// group, followed by enable_interrupts.
func Rust(p *plan.Plan, options Options) ([]byte, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}

	var w writer
	if options.Name != "" {
		w.line("struct %s;", options.Name)
		w.open("impl %s {", options.Name)
	}

	w.open("fn init() -> (")
	for _, g := range plan.Groups {
		w.line("&'static mut %s,", lowering.Tuple(types(p.Layout.Group(g))...))
	}
	w.close(") {")
	w.depth++

	for _, op := range p.Imports {
		w.line("%s;", op.Expr)
	}
	for _, op := range p.Ops {
		rustStatement(&w, op)
	}

	for _, g := range plan.Groups {
		w.line("static mut %s: MaybeUninit<%s> = MaybeUninit::uninit();", g.Static(), lowering.Tuple(types(p.Layout.Group(g))...))
	}
	w.open("unsafe {")
	w.open("(")
	for _, g := range plan.Groups {
		w.line("%s.write(%s),", g.Static(), lowering.Tuple(names(p.Layout.Group(g))...))
	}
	w.close(")")
	w.close("}")
	w.close("}")

	w.line("")
	w.line("#[inline]")
	if len(p.Unmasks) == 0 {
		w.line("fn enable_interrupts() {}")
	} else {
		w.open("fn enable_interrupts() {")
		w.open("unsafe {")
		for _, op := range p.Unmasks {
			w.line("%s;", op.Expr)
		}
		w.close("}")
		w.close("}")
	}

	if options.Name != "" {
		w.close("}")
	}
	return []byte(w.String()), nil
}

func rustStatement(w *writer, op plan.Operation) {
	switch {
	case op.Elided:
		w.line("// %s: %s", op.Kind, op.Expr)
	case !op.Defines():
		w.line("%s;", op.Expr)
	case op.Mutable:
		w.line("let mut %s = %s;", op.Name, op.Expr)
	default:
		w.line("let %s = %s;", op.Name, op.Expr)
	}
}

func types(handles []plan.Handle) []string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = h.Shape.Type
	}
	return out
}

func names(handles []plan.Handle) []string {
	out := make([]string, len(handles))
	for i, h := range handles {
		out[i] = h.Name
	}
	return out
}
