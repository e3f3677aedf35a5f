package domain

// PortKind identifies which side of a node a port sits on
type PortKind string

const (
	PortInput  PortKind = "input"
	PortOutput PortKind = "output"
)

// Opposite returns the port kind that can pair with k
func (k PortKind) Opposite() PortKind {
	if k == PortInput {
		return PortOutput
	}
	return PortInput
}

// Connection is a directed edge from one node's output to another's input
type Connection struct {
	ID   int `json:"id" yaml:"id" validate:"gte=0"`
	From int `json:"from" yaml:"from" validate:"gt=0"`
	To   int `json:"to" yaml:"to" validate:"gt=0"`
}

// Touches reports whether nodeID is either endpoint of c
func (c Connection) Touches(nodeID int) bool {
	return c.From == nodeID || c.To == nodeID
}

// Validate checks the endpoints without looking at the graph
func (c Connection) Validate() error {
	if c.From == c.To {
		return Errorf(KindInvalidEdge, "connection", "node %d cannot connect to itself", c.From)
	}
	return nil
}
