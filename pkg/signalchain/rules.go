package signalchain

// connectionRules maps a source node type to the types it may feed.
var connectionRules = map[NodeType][]NodeType{
	Instrument: {Microphone, Mixer, Processor, Speaker},
	Microphone: {Mixer, Processor},
	Mixer:      {Processor, Speaker, Simulation},
	Processor:  {Mixer, Speaker, Processor, Simulation},
	Speaker:    {Microphone, Simulation},
	Simulation: {},
}

// AllowedTargets returns the node types source may connect to.
func AllowedTargets(source NodeType) []NodeType {
	allowed := connectionRules[source]
	out := make([]NodeType, len(allowed))
	copy(out, allowed)
	return out
}

// CanConnect reports whether the rule table permits source -> target.
func CanConnect(source, target NodeType) bool {
	for _, t := range connectionRules[source] {
		if t == target {
			return true
		}
	}
	return false
}

// RequiresCatalog reports whether nodes of type t must reference a catalog
// model before they can accept a connection.
func RequiresCatalog(t NodeType) bool {
	return t == Mixer || t == Processor
}

// AcceptsFanIn reports whether a single input handle of t may take any
// number of incoming edges.
func AcceptsFanIn(t NodeType) bool {
	return t == Simulation
}
