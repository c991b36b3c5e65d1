package commands

// RegisterNodeCommand adds a node to the station's slice of the graph
type RegisterNodeCommand struct {
	NodeID   string `json:"node_id" validate:"required"`
	NodeType string `json:"node_type" validate:"required,oneof=station capability model synthetic"`
}

// Validate implements the Command interface
func (c RegisterNodeCommand) Validate() error {
	return validate.Struct(c)
}
