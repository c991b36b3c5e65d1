package commands

// RunMaturationCommand triggers one maturation pass. The pass is skipped
// if another is already in flight for this station.
type RunMaturationCommand struct{}

// Validate implements the Command interface
func (c RunMaturationCommand) Validate() error {
	return nil
}
