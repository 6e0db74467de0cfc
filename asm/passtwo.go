package asm

import (
	"github.com/lookbusy1344/riscv-edu/instr"
	"github.com/lookbusy1344/riscv-edu/lexer"
)

// PassTwo runs §4.5: first resolves every `.equiv`/`.equ`/`.set` chain
// into p.labels, then parses each TAL line pass one recorded into a
// MachineCode via the instr table, recording debug info alongside. It
// must only be called once PassOne produced no errors.
func PassTwo(p *Program) {
	resolveEquivChains(p)
	if p.Errors.HasErrors() {
		return
	}

	for _, tl := range p.talLines {
		inst, ok := instr.Lookup(tl.Mnemonic)
		if !ok {
			p.Errors.addError(tl.Debug.Line, tl.Debug.Source, ParseError, "unknown mnemonic %q", tl.Mnemonic)
			continue
		}
		mc, err := inst.Parse(tl.Operands, inst.Format.Fill(), p)
		if err != nil {
			p.Errors.addError(tl.Debug.Line, tl.Debug.Source, ParseError, "%s", err.Error())
			continue
		}
		p.Insts = append(p.Insts, mc)
		p.DebugInfo = append(p.DebugInfo, tl.Debug)
	}
}

// resolveEquivChains chases every `.equiv` name to a concrete value and
// merges it into p.labels, detecting self-referential cycles and names
// that were independently also declared as a real label.
func resolveEquivChains(p *Program) {
	originalLabels := make(map[string]bool, len(p.labels))
	for name := range p.labels {
		originalLabels[name] = true
	}

	for name := range p.equivs {
		if originalLabels[name] {
			p.Errors.addError(0, "", LabelError, "symbol %s is defined as both a label and an .equiv", name)
			continue
		}
		chaseEquiv(p, name, map[string]bool{})
	}
}

func chaseEquiv(p *Program, name string, visiting map[string]bool) (int32, bool) {
	if v, ok := p.labels[name]; ok {
		return v, true
	}
	if visiting[name] {
		p.Errors.addError(0, "", LabelError, "circularity in definition of %s", name)
		return 0, false
	}
	visiting[name] = true

	rhs, isEquiv := p.equivs[name]
	if !isEquiv {
		p.Errors.addError(0, "", LabelError, "undefined symbol %s", name)
		return 0, false
	}

	if n, ok, err := lexer.UserStringToInt(rhs); ok {
		if err != nil {
			p.Errors.addError(0, "", LabelError, "%s", err.Error())
			return 0, false
		}
		p.labels[name] = n
		return n, true
	}

	v, ok := chaseEquiv(p, rhs, visiting)
	if !ok {
		return 0, false
	}
	p.labels[name] = v
	return v, true
}
