package fray

// ToneMapping selects the display pass tone-mapping curve.
type ToneMapping uint8

const (
	// ToneMapLinear applies no curve, only exposure and gamma.
	ToneMapLinear ToneMapping = iota

	// ToneMapReinhard applies the Reinhard operator c/(1+c).
	ToneMapReinhard

	// ToneMapACES applies the ACES filmic approximation.
	ToneMapACES
)

// PostProcess holds the display pass parameters. Applied after accumulation
// normalization; changing them never invalidates accumulated samples.
type PostProcess struct {
	ToneMapping ToneMapping
	Exposure    float64
	Gamma       float64
	Brightness  float64
	Contrast    float64
	Saturation  float64
}

// DefaultPostProcess returns neutral post-processing parameters.
func DefaultPostProcess() PostProcess {
	return PostProcess{
		ToneMapping: ToneMapLinear,
		Exposure:    1,
		Gamma:       2.2,
		Brightness:  1,
		Contrast:    1,
		Saturation:  1,
	}
}

// Settings configures the accumulation scheduler. All fields are validated
// and clamped on every SetSettings call.
type Settings struct {
	// InteractionScale is the resolution scale used while interacting,
	// clamped to [0.25, 1].
	InteractionScale float64

	// MaxSubframes bounds accumulation; 0 means unbounded.
	MaxSubframes int

	// TileCount is the grid dimension: the target is split into
	// TileCount x TileCount tiles. 1 disables tiling.
	TileCount int

	// TilesPerFrame is how many tiles advance per idle tick.
	TilesPerFrame int

	// Post holds the display pass parameters.
	Post PostProcess
}

// DefaultSettings returns the scheduler defaults: full-resolution
// interaction previews at quarter scale, unbounded accumulation, no tiling.
func DefaultSettings() Settings {
	return Settings{
		InteractionScale: 0.5,
		MaxSubframes:     0,
		TileCount:        1,
		TilesPerFrame:    1,
		Post:             DefaultPostProcess(),
	}
}

// clamp returns a copy with every field forced into its valid range.
func (s Settings) clamp() Settings {
	if s.InteractionScale < 0.25 {
		s.InteractionScale = 0.25
	}
	if s.InteractionScale > 1 {
		s.InteractionScale = 1
	}
	if s.MaxSubframes < 0 {
		s.MaxSubframes = 0
	}
	if s.TileCount < 1 {
		s.TileCount = 1
	}
	if s.TilesPerFrame < 1 {
		s.TilesPerFrame = 1
	}
	if s.Post.Gamma <= 0 {
		s.Post.Gamma = 2.2
	}
	if s.Post.Exposure < 0 {
		s.Post.Exposure = 0
	}
	return s
}

// Equal reports whether two settings match in every field.
func (s Settings) Equal(o Settings) bool { return s == o }
