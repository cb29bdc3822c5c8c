package processor

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/resource"
)

// Recorder is a CommandProcessor that records the buffers it executes and validates resource
// sequencing instead of talking to a GPU. It backs headless runs and tests.
type Recorder interface {
	CommandProcessor

	// Frames returns the sequence numbers of the processed buffers, in processing order.
	//
	// Returns:
	//   - []uint64: the frame sequence numbers
	Frames() []uint64

	// Commands returns every processed command, in processing order.
	//
	// Returns:
	//   - []command.Command: the processed commands
	Commands() []command.Command

	// Violations returns the sequencing errors found so far, such as drawing with a mesh that
	// was never loaded or was already unloaded.
	//
	// Returns:
	//   - []string: one message per violation
	Violations() []string

	// Resident reports how many textures, meshes and shaders are currently loaded.
	//
	// Returns:
	//   - textures, meshes, shaders: the resident counts
	Resident() (textures, meshes, shaders int)
}

type recorder struct {
	mu *sync.Mutex

	frames     []uint64
	commands   []command.Command
	violations []string

	textures map[resource.Handle]bool
	meshes   map[resource.Handle]bool
	shaders  map[resource.Handle]bool

	inPass    bool
	boundMesh resource.Handle

	initialized bool
	onProcess   func(*command.Buffer)
}

var _ Recorder = &recorder{}

// NewRecorder creates a recording processor.
//
// Parameters:
//   - options: variadic list of RecorderBuilderOption functions to configure the recorder
//
// Returns:
//   - Recorder: the new recording processor
func NewRecorder(options ...RecorderBuilderOption) Recorder {
	r := &recorder{
		mu:       &sync.Mutex{},
		textures: make(map[resource.Handle]bool),
		meshes:   make(map[resource.Handle]bool),
		shaders:  make(map[resource.Handle]bool),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *recorder) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return fmt.Errorf("processor: recorder already initialized")
	}
	r.initialized = true
	return nil
}

func (r *recorder) Process(buf *command.Buffer) {
	r.mu.Lock()
	r.frames = append(r.frames, buf.Frame())
	for i, c := range buf.All() {
		r.commands = append(r.commands, c)
		if err := r.validate(c); err != nil {
			msg := fmt.Sprintf("frame %d command %d (%s): %v", buf.Frame(), i, c.Type(), err)
			r.violations = append(r.violations, msg)
			common.Logger().Warn("processor: invalid command", "frame", buf.Frame(), "index", i, "command", c.Type().String(), "err", err)
		}
	}
	hook := r.onProcess
	r.mu.Unlock()

	if hook != nil {
		hook(buf)
	}
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = false
	return nil
}

func (r *recorder) Frames() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.frames))
	copy(out, r.frames)
	return out
}

func (r *recorder) Commands() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *recorder) Violations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.violations))
	copy(out, r.violations)
	return out
}

func (r *recorder) Resident() (textures, meshes, shaders int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures), len(r.meshes), len(r.shaders)
}

// validate applies one command to the tracked resource state. Caller must hold the mutex.
func (r *recorder) validate(c command.Command) error {
	switch cmd := c.(type) {
	case command.LoadTextureCommand:
		return load(r.textures, cmd.Texture, "texture")
	case command.LoadCubemapCommand:
		return load(r.textures, cmd.Texture, "cubemap")
	case command.UnloadTextureCommand:
		return unload(r.textures, cmd.Texture, "texture")
	case command.LoadMeshCommand:
		return load(r.meshes, cmd.Mesh, "mesh")
	case command.UnloadMeshCommand:
		if cmd.Mesh == r.boundMesh {
			r.boundMesh = resource.Handle{}
		}
		return unload(r.meshes, cmd.Mesh, "mesh")
	case command.LoadShaderCommand:
		return load(r.shaders, cmd.Shader, "shader")
	case command.UnloadShaderCommand:
		return unload(r.shaders, cmd.Shader, "shader")

	case command.BeginPassCommand:
		if r.inPass {
			return fmt.Errorf("pass %q begun inside another pass", cmd.Name)
		}
		r.inPass = true
		r.boundMesh = resource.Handle{}
	case command.EndPassCommand:
		if !r.inPass {
			return fmt.Errorf("pass %q ended without BeginPass", cmd.Name)
		}
		r.inPass = false

	case command.BindMaterialCommand:
		if cmd.Material == nil {
			return fmt.Errorf("nil material")
		}
		if h := cmd.Material.Shader(); !h.IsZero() && !r.shaders[h] {
			return fmt.Errorf("shader %v is not loaded", h)
		}
		for _, h := range cmd.Material.Textures() {
			if !h.IsZero() && !r.textures[h] {
				return fmt.Errorf("texture %v is not loaded", h)
			}
		}
	case command.BindTextureCommand:
		if !cmd.Texture.IsZero() && !r.textures[cmd.Texture] {
			return fmt.Errorf("texture %v is not loaded", cmd.Texture)
		}
	case command.BindMeshCommand:
		if !cmd.Mesh.IsZero() && !r.meshes[cmd.Mesh] {
			return fmt.Errorf("mesh %v is not loaded", cmd.Mesh)
		}
		r.boundMesh = cmd.Mesh

	case command.DrawIndexedCommand:
		if !r.inPass {
			return fmt.Errorf("draw outside a pass")
		}
		if !r.boundMesh.IsZero() && !r.meshes[r.boundMesh] {
			return fmt.Errorf("bound mesh %v was unloaded", r.boundMesh)
		}
	case command.DrawQuadCommand, command.DrawFullscreenCommand,
		command.ApplyCameraCommand, command.ApplyLightsCommand:
		if !r.inPass {
			return fmt.Errorf("%s outside a pass", c.Type())
		}
	}
	return nil
}

func load(set map[resource.Handle]bool, h resource.Handle, kind string) error {
	if set[h] {
		return fmt.Errorf("%s %v loaded twice", kind, h)
	}
	set[h] = true
	return nil
}

func unload(set map[resource.Handle]bool, h resource.Handle, kind string) error {
	if !set[h] {
		return fmt.Errorf("%s %v unloaded while not loaded", kind, h)
	}
	delete(set, h)
	return nil
}
