package domain

import "github.com/google/uuid"

// Connector is a directed edge from an Output port to an Input or State port.
// It is owned by exactly one Graph.
type Connector struct {
	ID          uuid.UUID
	Source      *Port
	Destination *Port
}

// IsFeedback reports whether the connector ends on a State port.
func (c *Connector) IsFeedback() bool {
	return c.Destination != nil && c.Destination.Direction == PortState
}

// detach removes the connector from both endpoints. Nodes are left intact.
func (c *Connector) detach() {
	if c.Source != nil {
		c.Source.detach(c)
	}
	if c.Destination != nil {
		c.Destination.detach(c)
	}
}
