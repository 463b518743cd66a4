package emit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/tools/imports"

	"omibyte.io/hwinit/lowering/tinygo"
	"omibyte.io/hwinit/plan"
)

var goGroups = [...]struct{ field, typ string }{
	plan.GroupInputs:   {"Inputs", "InputPins"},
	plan.GroupOutputs:  {"Outputs", "OutputPins"},
	plan.GroupPwm:      {"Pwm", "PwmPins"},
	plan.GroupChannels: {"Channels", "Channels"},
	plan.GroupTimers:   {"Timers", "Timers"},
	plan.GroupSerials:  {"Serials", "Serials"},
}

// Go renders p as a Go file with an Init function returning one struct per
// layout group. The output is formatted and its imports are fixed up.
func Go(p *plan.Plan, options Options) ([]byte, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	pkg := options.Package
	if pkg == "" {
		pkg = "board"
	}

	var w strings.Builder
	fmt.Fprintln(&w, "// Code generated by hwinit. DO NOT EDIT.")
	fmt.Fprintln(&w)
	fmt.Fprintf(&w, "package %s\n\n", pkg)

	switch len(p.Imports) {
	case 0:
	case 1:
		fmt.Fprintf(&w, "import %s\n\n", strconv.Quote(p.Imports[0].Expr))
	default:
		fmt.Fprintln(&w, "import (")
		for _, op := range p.Imports {
			fmt.Fprintln(&w, strconv.Quote(op.Expr))
		}
		fmt.Fprint(&w, ")\n\n")
	}

	if p.Count(plan.OpInterruptTrigger) > 0 {
		fmt.Fprintf(&w, "// %s receives every pin interrupt configured by Init.\n", tinygo.InterruptHook)
		fmt.Fprintf(&w, "var %s = func(machine.Pin) {}\n\n", tinygo.InterruptHook)
	}

	for _, g := range plan.Groups {
		fmt.Fprintf(&w, "type %s struct {\n", goGroups[g].typ)
		for _, h := range p.Layout.Group(g) {
			fmt.Fprintf(&w, "%s %s\n", exported(h.Name), h.Shape.Type)
		}
		fmt.Fprint(&w, "}\n\n")
	}
	fmt.Fprintln(&w, "// Peripherals holds every handle Init produces.")
	fmt.Fprintln(&w, "type Peripherals struct {")
	for _, g := range plan.Groups {
		fmt.Fprintf(&w, "%s %s\n", goGroups[g].field, goGroups[g].typ)
	}
	fmt.Fprint(&w, "}\n\n")

	fmt.Fprintln(&w, "func Init() (*Peripherals, error) {")
	writeGoBody(&w, p)
	fmt.Fprintln(&w, "return &Peripherals{")
	for _, g := range plan.Groups {
		handles := p.Layout.Group(g)
		fields := make([]string, len(handles))
		for i, h := range handles {
			fields[i] = exported(h.Name) + ": " + h.Name
		}
		fmt.Fprintf(&w, "%s: %s{%s},\n", goGroups[g].field, goGroups[g].typ, strings.Join(fields, ", "))
	}
	fmt.Fprintln(&w, "}, nil")
	fmt.Fprintln(&w, "}")

	if len(p.Unmasks) > 0 {
		fmt.Fprintln(&w)
		fmt.Fprintln(&w, "func EnableInterrupts() {")
		for _, op := range p.Unmasks {
			fmt.Fprintln(&w, op.Expr)
		}
		fmt.Fprintln(&w, "}")
	}

	src := w.String()
	buf, err := imports.Process(pkg+".go", []byte(src), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8})
	if err != nil {
		return nil, fmt.Errorf("error formatting generated source: %w", err)
	}
	return buf, nil
}

func writeGoBody(w *strings.Builder, p *plan.Plan) {
	// Bindings that no statement or layout handle reads get a blank assignment.
	refs, _ := p.ReferenceGraph()
	used := map[int]bool{}
	for i, op := range p.Ops {
		if !op.Elided {
			for _, dep := range refs.Dependencies(i) {
				used[dep] = true
			}
		}
	}
	for _, g := range plan.Groups {
		for _, h := range p.Layout.Group(g) {
			used[h.Op] = true
		}
	}

	declared := map[string]bool{}
	errDeclared := false
	for i, op := range p.Ops {
		switch {
		case op.Elided:
			fmt.Fprintf(w, "// %s: %s\n", op.Kind, op.Expr)
		case !op.Defines() && op.Fallible:
			fmt.Fprintf(w, "if err := %s; err != nil {\nreturn nil, err\n}\n", op.Expr)
		case !op.Defines():
			fmt.Fprintln(w, op.Expr)
		default:
			assign := ":="
			if declared[op.Name] {
				assign = "="
			}
			declared[op.Name] = true
			if op.Fallible {
				if assign == "=" && !errDeclared {
					fmt.Fprintln(w, "var err error")
				}
				errDeclared = true
				fmt.Fprintf(w, "%s, err %s %s\nif err != nil {\nreturn nil, err\n}\n", op.Name, assign, op.Expr)
			} else {
				fmt.Fprintf(w, "%s %s %s\n", op.Name, assign, op.Expr)
			}
			if !used[i] {
				fmt.Fprintf(w, "_ = %s\n", op.Name)
			}
		}
	}
}

// exported turns a handle name such as "tim2_pa1" into "Tim2Pa1".
func exported(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
