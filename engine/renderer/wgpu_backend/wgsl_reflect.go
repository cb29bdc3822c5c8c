package wgpu_backend

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type in a uniform buffer.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// wgslVertexFormatMap maps WGSL vertex attribute types to wgpu vertex formats.
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"i32":       {wgpu.VertexFormatSint32, 4},
}

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix types to their size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2f":       {8, 8},
	"vec3<f32>":   {12, 16},
	"vec3f":       {12, 16},
	"vec4<f32>":   {16, 16},
	"vec4f":       {16, 16},
	"vec2<u32>":   {8, 8},
	"vec3<u32>":   {12, 16},
	"vec4<u32>":   {16, 16},
	"vec4<i32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var wgslViewDimensionMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":         wgpu.TextureViewDimension2D,
	"texture_2d_array":   wgpu.TextureViewDimension2DArray,
	"texture_cube":       wgpu.TextureViewDimensionCube,
	"texture_depth_2d":   wgpu.TextureViewDimension2D,
	"texture_depth_cube": wgpu.TextureViewDimensionCube,
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, address space, variable name and type from
	// declarations like: @group(0) @binding(0) var<uniform> camera: Camera;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// wgslReflection is what the backend needs to know about a WGSL module to build pipelines for it.
type wgslReflection struct {
	vertexEntry   string
	fragmentEntry string
	vertexLayout  *wgpu.VertexBufferLayout // nil when the vertex entry takes no vertex input struct
	groups        map[int]wgpu.BindGroupLayoutDescriptor
}

// reflectWGSL extracts entry points, the vertex input layout and resource bindings from WGSL source.
//
// Parameters:
//   - source: the WGSL module source
//   - visibility: the shader stages every reflected binding is made visible to
//
// Returns:
//   - wgslReflection: the reflected module interface
//   - error: an error if the module has no vertex entry point or its vertex input cannot be mapped
func reflectWGSL(source string, visibility wgpu.ShaderStage) (wgslReflection, error) {
	cleaned := stripComments(source)
	r := wgslReflection{
		vertexEntry:   findEntryPoint(cleaned, vertexEntryRegex),
		fragmentEntry: findEntryPoint(cleaned, fragmentEntryRegex),
	}
	if r.vertexEntry == "" {
		return r, fmt.Errorf("no @vertex entry point")
	}

	structs := parseStructBlocks(cleaned)
	if name := vertexInputStruct(cleaned, r.vertexEntry); name != "" {
		for _, ps := range structs {
			if ps.name != name {
				continue
			}
			layout, ok := buildVertexBufferLayout(ps)
			if !ok {
				return r, fmt.Errorf("vertex input %s has an unsupported attribute type", name)
			}
			r.vertexLayout = &layout
		}
	}

	r.groups = parseBindGroupLayouts(cleaned, structs, visibility)
	return r, nil
}

func findEntryPoint(cleaned string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	return ""
}

// vertexInputStruct returns the struct type of the first parameter of the named entry point,
// or "" when the entry point takes only builtins.
func vertexInputStruct(cleaned, entry string) string {
	re := regexp.MustCompile(`fn\s+` + regexp.QuoteMeta(entry) + `\s*\(\s*(\w+)\s*:\s*(\w+)`)
	m := re.FindStringSubmatch(cleaned)
	if m == nil {
		return ""
	}
	if _, primitive := wgslPrimitiveLayoutMap[m[2]]; primitive {
		return ""
	}
	return m[2]
}

// parseBindGroupLayouts turns every @group(N) @binding(M) declaration into a layout entry.
// Uniform buffer entries get MinBindingSize from the bound struct's size.
func parseBindGroupLayouts(cleaned string, structs []parsedStruct, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	sizes := computeStructSizes(structs)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)

	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		addressSpace := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), visibility, addressSpace, typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result
}

func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgslViewDimensionMap[typeName]
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = wgslViewDimensionMap[base]
		entry.Texture.SampleType = wgslSampleTypeMap[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves primitives, known structs and fixed-size arrays.
func resolveTypeLayout(typeName string, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := known[typeName]; ok {
		return layout, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return wgslTypeLayout{}, false
	}

	elemType, countStr, sized := strings.Cut(typeName[6:len(typeName)-1], ",")
	elem, ok := resolveTypeLayout(strings.TrimSpace(elemType), known)
	if !ok || !sized {
		return wgslTypeLayout{}, false
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * roundUpAlign(elem.align, elem.size), elem.align}, true
}

func computeStructLayout(ps parsedStruct, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset, maxAlign := uint64(0), uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes resolves struct layouts iteratively so structs may nest structs declared later.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if lm := locationRegex.FindStringSubmatch(line); lm != nil {
			if loc, err := strconv.Atoi(lm[1]); err == nil {
				field.location = loc
			}
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// buildVertexBufferLayout packs the struct's located fields in declaration order.
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64

	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			return wgpu.VertexBufferLayout{}, false
		}
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* */ comments, which may nest in WGSL.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// checkBindings verifies that every binding a module declares exists in the standard layouts
// with the same resource kind, so the module can run with the backend's bind groups.
//
// Parameters:
//   - declared: the bind groups reflected from the module
//   - standard: the backend's bind group layouts by group index
//
// Returns:
//   - error: an error naming the first binding that does not fit
func checkBindings(declared, standard map[int]wgpu.BindGroupLayoutDescriptor) error {
	for g, desc := range declared {
		std, ok := standard[g]
		if !ok {
			return fmt.Errorf("bind group %d is not provided", g)
		}
		for _, e := range desc.Entries {
			idx := entryIndex(std.Entries, e.Binding)
			if idx < 0 {
				return fmt.Errorf("binding @group(%d) @binding(%d) is not provided", g, e.Binding)
			}
			if want, got := bindingKind(std.Entries[idx]), bindingKind(e); want != got {
				return fmt.Errorf("binding @group(%d) @binding(%d) is %s, expected %s", g, e.Binding, got, want)
			}
		}
	}
	return nil
}

func entryIndex(entries []wgpu.BindGroupLayoutEntry, binding uint32) int {
	for i, e := range entries {
		if e.Binding == binding {
			return i
		}
	}
	return -1
}

func bindingKind(e wgpu.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return "uniform buffer"
	case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
		return "storage buffer"
	case e.Sampler.Type == wgpu.SamplerBindingTypeComparison:
		return "comparison sampler"
	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return "sampler"
	case e.Texture.SampleType == wgpu.TextureSampleTypeDepth:
		return "depth texture"
	case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
		return "texture"
	}
	return "unknown"
}
