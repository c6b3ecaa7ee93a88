package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowKinds adds the handler kind to action state nodes
	ShowKinds bool

	// ShowCommands draws command edges labelled with the command name
	ShowCommands bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowKinds:    true,
		ShowCommands: true,
		Direction:    "TD",
	}
}

// WithShowKinds enables/disables handler kinds in state nodes.
func (o Options) WithShowKinds(show bool) Options {
	o.ShowKinds = show

	return o
}

// WithShowCommands enables/disables command edges.
func (o Options) WithShowCommands(show bool) Options {
	o.ShowCommands = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
