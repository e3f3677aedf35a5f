package domain

import "time"

// Snapshot is the portable document for export, import and the local slot.
// Timestamp is only set on locally saved snapshots.
type Snapshot struct {
	Nodes        []Node        `json:"nodes" yaml:"nodes"`
	Connections  []Connection  `json:"connections" yaml:"connections"`
	GameElements *GameElements `json:"gameElements" yaml:"gameElements"`
	Timestamp    *time.Time    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// NewSnapshot creates an empty document
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Nodes:        make([]Node, 0),
		Connections:  make([]Connection, 0),
		GameElements: NewGameElements(),
	}
}

// AddNode appends a node to the document
func (s *Snapshot) AddNode(node Node) {
	s.Nodes = append(s.Nodes, node)
}

// AddConnection appends a connection to the document
func (s *Snapshot) AddConnection(conn Connection) {
	s.Connections = append(s.Connections, conn)
}

// Normalize fills absent collections with empty defaults
func (s *Snapshot) Normalize() {
	if s.Nodes == nil {
		s.Nodes = make([]Node, 0)
	}
	for i := range s.Nodes {
		s.Nodes[i].Normalize()
	}
	if s.Connections == nil {
		s.Connections = make([]Connection, 0)
	}
	// documents written by older exports carry no connection ids
	next := MaxConnectionID(s.Connections)
	for i := range s.Connections {
		if s.Connections[i].ID == 0 {
			next++
			s.Connections[i].ID = next
		}
	}
	if s.GameElements == nil {
		s.GameElements = NewGameElements()
	}
	s.GameElements.Normalize()
}

// Validate checks that the document describes a consistent graph: unique
// positive node ids, known kinds, and connections between distinct live
// nodes with unique ids. Parallel connections are allowed.
func (s *Snapshot) Validate() error {
	const op = "snapshot"

	nodes := make(map[int]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID <= 0 {
			return Errorf(KindParse, op, "node id %d must be positive", n.ID)
		}
		if _, dup := nodes[n.ID]; dup {
			return Errorf(KindParse, op, "duplicate node id %d", n.ID)
		}
		if !n.Kind.Valid() {
			return Errorf(KindParse, op, "node %d has unknown type %q", n.ID, n.Kind)
		}
		nodes[n.ID] = struct{}{}
	}

	conns := make(map[int]struct{}, len(s.Connections))
	for _, c := range s.Connections {
		if c.ID <= 0 {
			return Errorf(KindParse, op, "connection id %d must be positive", c.ID)
		}
		if _, dup := conns[c.ID]; dup {
			return Errorf(KindParse, op, "duplicate connection id %d", c.ID)
		}
		if c.From == c.To {
			return Errorf(KindParse, op, "connection %d is a self-loop on node %d", c.ID, c.From)
		}
		if _, ok := nodes[c.From]; !ok {
			return Errorf(KindParse, op, "connection %d references missing node %d", c.ID, c.From)
		}
		if _, ok := nodes[c.To]; !ok {
			return Errorf(KindParse, op, "connection %d references missing node %d", c.ID, c.To)
		}
		conns[c.ID] = struct{}{}
	}
	return nil
}

// PruneConnections removes connections that are self-loops or do not join
// two nodes of the snapshot and returns them in stored order.
func (s *Snapshot) PruneConnections() []Connection {
	nodes := make(map[int]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes[n.ID] = struct{}{}
	}

	var dropped []Connection
	kept := s.Connections[:0]
	for _, c := range s.Connections {
		_, fromOK := nodes[c.From]
		_, toOK := nodes[c.To]
		if c.From == c.To || !fromOK || !toOK {
			dropped = append(dropped, c)
			continue
		}
		kept = append(kept, c)
	}
	s.Connections = kept
	return dropped
}

// MaxNodeID returns the largest node id, or 0 for an empty slice
func MaxNodeID(nodes []Node) int {
	highest := 0
	for _, n := range nodes {
		if n.ID > highest {
			highest = n.ID
		}
	}
	return highest
}

// MaxConnectionID returns the largest connection id, or 0 for an empty slice
func MaxConnectionID(conns []Connection) int {
	highest := 0
	for _, c := range conns {
		if c.ID > highest {
			highest = c.ID
		}
	}
	return highest
}
