package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// PortDirection tells how a port takes part in connections.
type PortDirection string

const (
	PortInput  PortDirection = "input"
	PortOutput PortDirection = "output"
	// PortState behaves like an input for connectivity but carries feedback,
	// so edges into it are exempt from the acyclicity requirement.
	PortState PortDirection = "state"
)

// Port is a connection point on a node.
type Port struct {
	Direction PortDirection
	Index     int
	Name      string
	Default   Value

	owner      *Node
	connectors []*Connector
}

// ID returns the stable identity of the port: <node>:<direction>:<index>.
func (p *Port) ID() string {
	var owner uuid.UUID
	if p.owner != nil {
		owner = p.owner.ID
	}
	return fmt.Sprintf("%s:%s:%d", owner, p.Direction, p.Index)
}

// Owner returns the node the port belongs to.
func (p *Port) Owner() *Node {
	return p.owner
}

// Connectors returns a copy of the connectors attached to the port.
func (p *Port) Connectors() []*Connector {
	out := make([]*Connector, len(p.connectors))
	copy(out, p.connectors)
	return out
}

// IsConnected reports whether any connector is attached.
func (p *Port) IsConnected() bool {
	return len(p.connectors) > 0
}

// Incoming returns the connector feeding an input or state port, if any.
func (p *Port) Incoming() *Connector {
	if p.Direction == PortOutput || len(p.connectors) == 0 {
		return nil
	}
	return p.connectors[0]
}

func (p *Port) attach(c *Connector) {
	p.connectors = append(p.connectors, c)
}

func (p *Port) detach(c *Connector) {
	for i, existing := range p.connectors {
		if existing == c {
			p.connectors = append(p.connectors[:i], p.connectors[i+1:]...)
			return
		}
	}
}
