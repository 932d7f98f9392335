// Package export converts decoded packet trees into portable forms.
package export

import (
	"fmt"

	"github.com/danmuck/bitpacket/internal/protocol/packet"
	"github.com/fxamacker/cbor/v2"
)

// Node mirrors a packet for JSON and CBOR output. Literal nodes set Value;
// operator nodes set Operator, Framing and Children.
type Node struct {
	Version  uint8  `json:"version" cbor:"1,keyasint"`
	Type     uint8  `json:"type" cbor:"2,keyasint"`
	Value    *int64 `json:"value,omitempty" cbor:"3,keyasint,omitempty"`
	Operator string `json:"operator,omitempty" cbor:"-"`
	Framing  *uint8 `json:"framing,omitempty" cbor:"4,keyasint,omitempty"`
	Children []Node `json:"children,omitempty" cbor:"5,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("export: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Tree converts p into a Node tree.
func Tree(p *packet.Packet) Node {
	n := Node{Version: p.Version, Type: p.TypeID()}
	if p.IsLiteral() {
		v := p.Value
		n.Value = &v
		return n
	}
	framing := uint8(p.Framing)
	n.Operator = p.Operator.String()
	n.Framing = &framing
	n.Children = make([]Node, len(p.Children))
	for i, c := range p.Children {
		n.Children[i] = Tree(c)
	}
	return n
}

// Packet rebuilds a packet tree from n, enforcing the same structural rules
// the decoder does.
func (n Node) Packet() (*packet.Packet, error) {
	if n.Version > 7 {
		return nil, fmt.Errorf("%w: %d", packet.ErrInvalidVersion, n.Version)
	}
	if n.Type == packet.TypeLiteral {
		if n.Value == nil {
			return nil, fmt.Errorf("export: literal node without value")
		}
		if len(n.Children) != 0 {
			return nil, fmt.Errorf("export: literal node with children")
		}
		if n.Framing != nil {
			return nil, fmt.Errorf("%w: literal node with length type", packet.ErrFraming)
		}
		if *n.Value < 0 {
			return nil, fmt.Errorf("%w: %d", packet.ErrNegativeLiteral, *n.Value)
		}
		return packet.NewLiteral(n.Version, *n.Value), nil
	}

	op, err := packet.ParseOperator(n.Type)
	if err != nil {
		return nil, err
	}
	if n.Framing != nil && packet.Framing(*n.Framing) != packet.FramingBits && packet.Framing(*n.Framing) != packet.FramingCount {
		return nil, fmt.Errorf("%w: unknown length type %d", packet.ErrFraming, *n.Framing)
	}
	if n.Value != nil {
		return nil, fmt.Errorf("export: operator node with value")
	}
	if len(n.Children) == 0 || (op.Comparison() && len(n.Children) != 2) {
		return nil, fmt.Errorf("%w: %s with %d sub-packets", packet.ErrFraming, op, len(n.Children))
	}
	children := make([]*packet.Packet, len(n.Children))
	for i, c := range n.Children {
		child, err := c.Packet()
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	p := packet.NewOperator(n.Version, op, children...)
	if n.Framing != nil {
		p.Framing = packet.Framing(*n.Framing)
	}
	return p, nil
}

// MarshalCBOR serializes p to deterministic CBOR bytes.
func MarshalCBOR(p *packet.Packet) ([]byte, error) {
	return cborEncMode.Marshal(Tree(p))
}

// UnmarshalCBOR deserializes a packet tree written by MarshalCBOR.
func UnmarshalCBOR(data []byte) (*packet.Packet, error) {
	var n Node
	if err := cbor.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("export: unmarshal tree: %w", err)
	}
	return n.Packet()
}

// EncodeCBOR serializes v with the same canonical options used for trees.
func EncodeCBOR(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}
