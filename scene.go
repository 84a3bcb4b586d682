package fray

// SourceRef locates a line in the original scene source.
type SourceRef struct {
	Path string
	Line int
}

// ShaderSource is one externally composed GPU program: a vertex/fragment
// pair plus an optional map from final fragment source lines back to the
// original scene source. Entry i-1 of the map corresponds to fragment
// line i (1-based); nil entries mark generated lines with no origin.
type ShaderSource struct {
	VertexSource    string
	FragmentSource  string
	FragmentLineMap []*SourceRef
}

// SceneState is everything the renderer needs to draw: the scene and probe
// program sources, the declared uniform table with initial values, and the
// integrator identifier with its option values.
//
// The renderer owns its copy exclusively. SetScene replaces it wholesale;
// the update operations are the only partial mutations.
type SceneState struct {
	// Scene is the main accumulation program source.
	Scene ShaderSource

	// Probe is the single-pixel focus probe program source.
	Probe ShaderSource

	// Uniforms maps declared uniform names to their current values.
	// The value kinds double as the declared types for update validation.
	Uniforms map[string]Value

	// Integrator identifies the shading algorithm baked into the sources.
	Integrator string

	// IntegratorOptions holds the integrator's tunables, including the
	// distance-estimator parameters the focus probe needs.
	IntegratorOptions map[string]Value
}

// clone deep-copies the scene state so external callers cannot mutate the
// renderer's copy through retained maps or slices.
func (s *SceneState) clone() *SceneState {
	c := &SceneState{
		Scene:             s.Scene.clone(),
		Probe:             s.Probe.clone(),
		Uniforms:          cloneValues(s.Uniforms),
		Integrator:        s.Integrator,
		IntegratorOptions: cloneValues(s.IntegratorOptions),
	}
	return c
}

func (src ShaderSource) clone() ShaderSource {
	out := src
	if src.FragmentLineMap != nil {
		out.FragmentLineMap = make([]*SourceRef, len(src.FragmentLineMap))
		for i, ref := range src.FragmentLineMap {
			if ref != nil {
				r := *ref
				out.FragmentLineMap[i] = &r
			}
		}
	}
	return out
}
