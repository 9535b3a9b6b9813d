package shader

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/gogpu/gputypes"
)

// ErrMissingEntryPoint is returned when a variant lacks a @vertex or @fragment function.
var ErrMissingEntryPoint = errors.New("shader: missing entry point")

// Program is a WGSL program whose variants are selected by pre-processor defines.
// Compiled variants are cached by their define key.
type Program struct {
	name   string
	source string

	mu       sync.Mutex
	variants map[string]gfx.ShaderInfo
}

// NewProgram creates a program from WGSL source.
//
// Parameters:
//   - name: the program name, used as a label and as part of pass hashes
//   - source: the WGSL source containing pre-processor directives
//
// Returns:
//   - *Program: the program with an empty variant cache
func NewProgram(name, source string) *Program {
	return &Program{
		name:     name,
		source:   source,
		variants: make(map[string]gfx.ShaderInfo),
	}
}

// NewProgramFromFile reads WGSL source from disk and creates a program from it.
//
// Parameters:
//   - name: the program name
//   - path: the file path to read WGSL source from
//
// Returns:
//   - *Program: the program
//   - error: an error if the file could not be read
func NewProgramFromFile(name, path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", path, err)
	}
	return NewProgram(name, string(data)), nil
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.name
}

// Source returns the unprocessed WGSL source.
func (p *Program) Source() string {
	return p.source
}

// Variant returns the compiled variant for a define set, compiling it on first request.
// The define order does not matter.
//
// Parameters:
//   - defines: the defines selecting the variant
//
// Returns:
//   - gfx.ShaderInfo: the compiled variant
//   - error: an error if the variant failed to pre-process or lacks entry points
func (p *Program) Variant(defines []Define) (gfx.ShaderInfo, error) {
	key := DefinesKey(defines)

	p.mu.Lock()
	defer p.mu.Unlock()
	if info, ok := p.variants[key]; ok {
		return info, nil
	}
	info, err := Compile(p.name, p.source, defines)
	if err != nil {
		return gfx.ShaderInfo{}, err
	}
	p.variants[key] = info
	return info, nil
}

// Variants returns the number of cached variants.
func (p *Program) Variants() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.variants)
}

// Compile pre-processes a WGSL source and extracts what a device needs to build a shader:
// the vertex and fragment entry points, the vertex inputs and the buffer bindings per set.
//
// Parameters:
//   - name: the shader name
//   - source: the WGSL source containing pre-processor directives
//   - defines: the defines in effect
//
// Returns:
//   - gfx.ShaderInfo: the compiled shader description
//   - error: a pre-processor error or ErrMissingEntryPoint
func Compile(name, source string, defines []Define) (gfx.ShaderInfo, error) {
	processed, err := Preprocess(source, defines)
	if err != nil {
		return gfx.ShaderInfo{}, fmt.Errorf("shader: failed to pre-process %q: %w", name, err)
	}

	vs := parseEntryPoint(processed, gputypes.ShaderStageVertex)
	if vs == "" {
		return gfx.ShaderInfo{}, fmt.Errorf("shader: %q has no @vertex function: %w", name, ErrMissingEntryPoint)
	}
	fs := parseEntryPoint(processed, gputypes.ShaderStageFragment)
	if fs == "" {
		return gfx.ShaderInfo{}, fmt.Errorf("shader: %q has no @fragment function: %w", name, ErrMissingEntryPoint)
	}

	return gfx.ShaderInfo{
		Name: name,
		Stages: []gfx.ShaderStage{
			{Stage: gputypes.ShaderStageVertex, Source: processed, EntryPoint: vs},
			{Stage: gputypes.ShaderStageFragment, Source: processed, EntryPoint: fs},
		},
		Attributes: ParseVertexAttributes(processed),
		SetLayouts: ParseDescriptorSetLayouts(processed, gputypes.ShaderStagesVertexFragment),
	}, nil
}
