package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/gogpu/gputypes"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding vertex format
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {gputypes.VertexFormatFloat32},
	"vec2f":     {gputypes.VertexFormatFloat32x2},
	"vec2<f32>": {gputypes.VertexFormatFloat32x2},
	"vec3f":     {gputypes.VertexFormatFloat32x3},
	"vec3<f32>": {gputypes.VertexFormatFloat32x3},
	"vec4f":     {gputypes.VertexFormatFloat32x4},
	"vec4<f32>": {gputypes.VertexFormatFloat32x4},
	"i32":       {gputypes.VertexFormatSint32},
	"vec2i":     {gputypes.VertexFormatSint32x2},
	"vec2<i32>": {gputypes.VertexFormatSint32x2},
	"vec3i":     {gputypes.VertexFormatSint32x3},
	"vec3<i32>": {gputypes.VertexFormatSint32x3},
	"vec4i":     {gputypes.VertexFormatSint32x4},
	"vec4<i32>": {gputypes.VertexFormatSint32x4},
	"u32":       {gputypes.VertexFormatUint32},
	"vec2u":     {gputypes.VertexFormatUint32x2},
	"vec2<u32>": {gputypes.VertexFormatUint32x2},
	"vec3u":     {gputypes.VertexFormatUint32x3},
	"vec3<u32>": {gputypes.VertexFormatUint32x3},
	"vec4u":     {gputypes.VertexFormatUint32x4},
	"vec4<u32>": {gputypes.VertexFormatUint32x4},
	"vec2<f16>": {gputypes.VertexFormatFloat16x2},
	"vec2h":     {gputypes.VertexFormatFloat16x2},
	"vec4<f16>": {gputypes.VertexFormatFloat16x4},
	"vec4h":     {gputypes.VertexFormatFloat16x4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// ParseVertexAttributes extracts the vertex inputs of a WGSL shader. Every struct that is a pure
// vertex input (has @location fields and no @builtin field) contributes its fields, in declaration
// order, as attributes named after the field. Structs containing unrecognized types are skipped.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - []gfx.Attribute: the declared inputs with their shader locations
func ParseVertexAttributes(source string) []gfx.Attribute {
	structs := parseStructBlocks(stripComments(source))

	var attrs []gfx.Attribute
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		parsed, ok := buildAttributes(ps)
		if !ok {
			continue
		}
		attrs = append(attrs, parsed...)
	}
	return attrs
}

// ParseDescriptorSetLayouts extracts all @group(N) @binding(M) buffer declarations from WGSL source
// and returns them as descriptor set layouts keyed by set index. Entries are sorted by binding and
// buffer entries carry the minimum binding size of their declared type when it can be resolved.
// Sampler and texture declarations are ignored.
//
// Parameters:
//   - source: the WGSL source code
//   - visibility: the shader stages to set on each entry
//
// Returns:
//   - map[gfx.SetIndex]gfx.DescriptorSetLayoutInfo: layouts keyed by set index
func ParseDescriptorSetLayouts(source string, visibility gputypes.ShaderStage) map[gfx.SetIndex]gfx.DescriptorSetLayoutInfo {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	groups := make(map[gfx.SetIndex][]gputypes.BindGroupLayoutEntry)
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		typeName := strings.TrimSpace(match[5])

		entry, ok := classifyBuffer(uint32(binding), visibility, addressSpace)
		if !ok {
			continue
		}
		if layout, ok := resolveTypeLayout(typeName, structSizes); ok && layout.size > 0 {
			entry.Buffer.MinBindingSize = layout.size
		}
		set := gfx.SetIndex(group)
		groups[set] = append(groups[set], entry)
	}

	result := make(map[gfx.SetIndex]gfx.DescriptorSetLayoutInfo, len(groups))
	for set, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[set] = gfx.DescriptorSetLayoutInfo{Bindings: entries}
	}
	return result
}

// parseEntryPoint extracts the entry point function name for the given stage from WGSL source.
// Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - stage: the stage to search for (vertex or fragment)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, stage gputypes.ShaderStage) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch stage {
	case gputypes.ShaderStageVertex:
		re = vertexEntryRegex
	case gputypes.ShaderStageFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		name := match[1]
		body := match[2]

		fields := parseStructFields(body)
		structs = append(structs, parsedStruct{
			name:   name,
			fields: fields,
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField

		// check for @builtin
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		// check for @location(N)
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		// extract field name and type
		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			field.name = fm[1]
			field.typeName = strings.TrimSpace(fm[2])
		} else {
			continue
		}

		fields = append(fields, field)
	}

	return fields
}
