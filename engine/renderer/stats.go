package renderer

// Stats are the counters of one frame, summed over every camera rendered in it.
type Stats struct {
	Cameras   int
	DrawCalls uint32
	Instances uint32

	VisibleObjects int
	ShadowCasters  int
	ValidLights    int
	AdditiveDraws  int

	OpaqueDraws      int
	TransparentDraws int
	InstancedDraws   int
	InstancedObjects int
	BatchedDraws     int
	BatchedObjects   int

	// pipeline cache state at the end of the frame
	Pipelines      int
	PipelineHits   uint64
	PipelineMisses uint64
}
