package cfg

// Ancestors returns the superclass chain of class, nearest first, stopping
// at the first class the program does not describe. The chain is cut if it
// revisits a class.
func Ancestors(p Program, class string) []string {
	var chain []string
	seen := map[string]bool{class: true}
	for cur := class; ; {
		super, ok := p.Superclass(cur)
		if !ok || seen[super] {
			return chain
		}
		seen[super] = true
		chain = append(chain, super)
		cur = super
	}
}

// DescendsFrom reports whether class is ancestor or inherits from it.
func DescendsFrom(p Program, class, ancestor string) bool {
	if class == ancestor {
		return true
	}
	for _, a := range Ancestors(p, class) {
		if a == ancestor {
			return true
		}
	}
	return false
}
