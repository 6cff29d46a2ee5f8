package atom

// Builder accumulates Atoms into a Grammar under construction. It exists so
// a surface DSL (outside the core) can compose grammars out of smaller,
// independently-built pieces without the core ever seeing anything but
// integer indices.
type Builder struct {
	atoms []Atom
	root  int
}

// NewBuilder starts an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an atom and returns its index.
func (b *Builder) Add(a Atom) int {
	b.atoms = append(b.atoms, a)
	return len(b.atoms) - 1
}

// SetRoot records which atom index is the grammar's start rule.
func (b *Builder) SetRoot(ix int) {
	b.root = ix
}

// Len returns the number of atoms added so far.
func (b *Builder) Len() int {
	return len(b.atoms)
}

// Patch overwrites the atom at ix, previously reserved with Add as a
// placeholder (typically Ref(0)) for a forward reference that could not be
// resolved until later atoms existed. Used by self-referential rule
// construction such as the infix compiler's right-associative levels.
func (b *Builder) Patch(ix int, a Atom) {
	b.atoms[ix] = a
}

// Import copies every atom of other into this builder, shifting every
// internal index reference by the offset at which the copy begins, and
// returns that offset. This lets one grammar be embedded inside another
// (e.g. a library of common rules) while keeping every reference an
// integer, never a pointer.
func (b *Builder) Import(other *Grammar) (offset int) {
	offset = len(b.atoms)
	for _, a := range other.Atoms {
		b.atoms = append(b.atoms, shiftAtom(a, offset))
	}
	return offset
}

// ImportRoot is a convenience for Import followed by resolving other's own
// root index into this builder's index space.
func (b *Builder) ImportRoot(other *Grammar) int {
	offset := b.Import(other)
	return offset + other.Root
}

func shiftAtom(a Atom, offset int) Atom {
	switch a.Kind {
	case KindRef:
		a.Target = offset + a.Target
	case KindSequence, KindAlternative:
		items := make([]int, len(a.Items))
		for i, ix := range a.Items {
			items[i] = offset + ix
		}
		a.Items = items
	case KindRepetition, KindLookahead, KindNamed, KindIgnore:
		a.Sub = offset + a.Sub
	}
	return a
}

// Build finalizes the builder into a Grammar. The result is not validated;
// call Grammar.Validate before using it if the atoms came from an
// untrusted source.
func (b *Builder) Build() *Grammar {
	return NewGrammar(b.atoms, b.root)
}

// BuildValidated finalizes the builder and validates the result.
func (b *Builder) BuildValidated() (*Grammar, error) {
	g := b.Build()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
