package packet

// Evaluate computes the value of p. Sum and Product wrap on int64 overflow
// the way Go integer arithmetic does. Comparison operators read Children[0]
// and Children[1]; trees returned by Decode always have both.
func Evaluate(p *Packet) int64 {
	if p.IsLiteral() {
		return p.Value
	}

	switch p.Operator {
	case OpSum:
		var total int64
		for _, c := range p.Children {
			total += Evaluate(c)
		}
		return total
	case OpProduct:
		total := int64(1)
		for _, c := range p.Children {
			total *= Evaluate(c)
		}
		return total
	case OpMinimum:
		best := Evaluate(p.Children[0])
		for _, c := range p.Children[1:] {
			best = min(best, Evaluate(c))
		}
		return best
	case OpMaximum:
		best := Evaluate(p.Children[0])
		for _, c := range p.Children[1:] {
			best = max(best, Evaluate(c))
		}
		return best
	case OpGreaterThan:
		return boolValue(Evaluate(p.Children[0]) > Evaluate(p.Children[1]))
	case OpLessThan:
		return boolValue(Evaluate(p.Children[0]) < Evaluate(p.Children[1]))
	case OpEqual:
		return boolValue(Evaluate(p.Children[0]) == Evaluate(p.Children[1]))
	default:
		panic("packet: evaluate on invalid operator " + p.Operator.String())
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
