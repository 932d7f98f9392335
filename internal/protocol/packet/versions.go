package packet

// SumVersions adds the version tag of p and every packet below it.
func SumVersions(p *Packet) int64 {
	total := int64(p.Version)
	for _, c := range p.Children {
		total += SumVersions(c)
	}
	return total
}

// Versions lists every version tag in pre-order.
func Versions(p *Packet) []uint8 {
	var out []uint8
	Walk(p, func(n *Packet, _ int) bool {
		out = append(out, n.Version)
		return true
	})
	return out
}

// Walk visits p and its descendants depth-first in pre-order. Returning false
// from fn skips the children of the visited packet.
func Walk(p *Packet, fn func(p *Packet, depth int) bool) {
	walk(p, 0, fn)
}

func walk(p *Packet, depth int, fn func(*Packet, int) bool) {
	if !fn(p, depth) {
		return
	}
	for _, c := range p.Children {
		walk(c, depth+1, fn)
	}
}

// Stats summarizes the shape of a packet tree.
type Stats struct {
	Packets   int `json:"packets"`
	Literals  int `json:"literals"`
	Operators int `json:"operators"`
	MaxDepth  int `json:"max_depth"`
}

func Summarize(p *Packet) Stats {
	var s Stats
	Walk(p, func(n *Packet, depth int) bool {
		s.Packets++
		if n.IsLiteral() {
			s.Literals++
		} else {
			s.Operators++
		}
		s.MaxDepth = max(s.MaxDepth, depth)
		return true
	})
	return s
}
