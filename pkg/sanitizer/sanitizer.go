package sanitizer

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// SanitizeIdentifier is applied to unit ids, booking ids and hold tokens.
// Inner spaces are kept so the validator can reject them.
func SanitizeIdentifier(input string) string {
	p := Pipeline{
		dropControl,
		trim,
	}
	return p.Apply(input)
}

func SanitizeKind(input string) string {
	p := Pipeline{
		trim,
		lower,
	}
	return p.Apply(input)
}

func SanitizeReference(input string) string {
	p := Pipeline{
		TrimAndNormalize,
		dropControl,
		trim,
	}
	return p.Apply(input)
}
