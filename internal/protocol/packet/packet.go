package packet

import (
	"strconv"
	"strings"
)

// Kind tags a packet as a literal leaf or an operator node.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindOperator
)

// Framing is the length-type-ID an operator's children were framed with.
type Framing uint8

const (
	FramingBits  Framing = 0
	FramingCount Framing = 1
)

// Packet is one node of a decoded transmission. Literal packets carry Value;
// operator packets carry Operator, Framing and Children. Trees are built once
// and not mutated afterwards.
type Packet struct {
	Version  uint8
	Kind     Kind
	Value    int64
	Operator Operator
	Framing  Framing
	Children []*Packet
}

func NewLiteral(version uint8, value int64) *Packet {
	return &Packet{Version: version, Kind: KindLiteral, Value: value}
}

// NewOperator builds an operator node framed by total bit length.
func NewOperator(version uint8, op Operator, children ...*Packet) *Packet {
	return &Packet{Version: version, Kind: KindOperator, Operator: op, Children: children}
}

// NewCounted builds an operator node framed by sub-packet count.
func NewCounted(version uint8, op Operator, children ...*Packet) *Packet {
	p := NewOperator(version, op, children...)
	p.Framing = FramingCount
	return p
}

func (p *Packet) IsLiteral() bool {
	return p.Kind == KindLiteral
}

// TypeID is the 3-bit type tag the packet is encoded with.
func (p *Packet) TypeID() uint8 {
	if p.IsLiteral() {
		return TypeLiteral
	}
	return uint8(p.Operator)
}

// Equal compares version, kind, value, operator and child order. Framing is
// an encoding detail and is ignored.
func (p *Packet) Equal(o *Packet) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Version != o.Version || p.Kind != o.Kind {
		return false
	}
	if p.IsLiteral() {
		return p.Value == o.Value
	}
	if p.Operator != o.Operator || len(p.Children) != len(o.Children) {
		return false
	}
	for i := range p.Children {
		if !p.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the tree as an s-expression, e.g. (lt@1 10@6 20@2).
func (p *Packet) String() string {
	var b strings.Builder
	p.format(&b)
	return b.String()
}

func (p *Packet) format(b *strings.Builder) {
	if p.IsLiteral() {
		b.WriteString(strconv.FormatInt(p.Value, 10))
		b.WriteByte('@')
		b.WriteString(strconv.Itoa(int(p.Version)))
		return
	}
	b.WriteByte('(')
	b.WriteString(p.Operator.String())
	b.WriteByte('@')
	b.WriteString(strconv.Itoa(int(p.Version)))
	for _, c := range p.Children {
		b.WriteByte(' ')
		c.format(b)
	}
	b.WriteByte(')')
}
