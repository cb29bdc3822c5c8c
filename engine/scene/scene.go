package scene

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
	"github.com/gogpu/gputypes"
)

// updateChunksPerWorker controls how finely Update splits the object list across the pool.
const updateChunksPerWorker = 4

type scene struct {
	mu *sync.RWMutex

	name    string
	active  bool
	cam     camera.Camera
	ambient gputypes.Color

	// objects keeps insertion order so snapshots are deterministic; index maps IDs into it.
	objects []game_object.GameObject
	index   map[uint64]int
	lights  []light.Light
	ui      []snapshot.UIDrawItem

	// computePool manages a bounded set of reusable goroutines for Update.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Scene groups the game objects, lights, UI items and camera that make up one view of the world.
// A scene is a snapshot.Listener: when registered with the engine it copies its state into every
// render snapshot the engine builds.
type Scene interface {
	snapshot.Listener

	// Name returns the scene's name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Active reports whether the scene contributes to snapshots.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive enables or disables the scene.
	//
	// Parameters:
	//   - active: true to contribute to snapshots
	SetActive(active bool)

	// Camera returns the scene camera, or nil.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// SetCamera replaces the scene camera.
	//
	// Parameters:
	//   - cam: the camera, or nil to leave the snapshot camera untouched
	SetCamera(cam camera.Camera)

	// Ambient returns the ambient light colour.
	//
	// Returns:
	//   - gputypes.Color: the ambient colour
	Ambient() gputypes.Color

	// SetAmbient sets the ambient light colour.
	//
	// Parameters:
	//   - c: the ambient colour
	SetAmbient(c gputypes.Color)

	// Add registers objects with the scene. An object whose ID is already present replaces
	// the existing entry in place.
	//
	// Parameters:
	//   - objects: the objects to add
	Add(objects ...game_object.GameObject)

	// Get looks up an object by ID.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - game_object.GameObject: the object, or nil
	//   - bool: false if no object has the ID
	Get(id uint64) (game_object.GameObject, bool)

	// Remove deletes an object from the scene.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - bool: false if no object has the ID
	Remove(id uint64) bool

	// Clear removes every object, light and UI item.
	Clear()

	// Count returns the number of registered objects.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Objects returns the registered objects in insertion order.
	//
	// Returns:
	//   - []game_object.GameObject: a copy of the object list
	Objects() []game_object.GameObject

	// AddLight registers a free-standing light. Lights attached to game objects are picked up
	// through their objects and do not need to be added here.
	//
	// Parameters:
	//   - l: the light
	AddLight(l light.Light)

	// RemoveLight unregisters a light.
	//
	// Parameters:
	//   - l: the light
	//
	// Returns:
	//   - bool: false if the light was not registered
	RemoveLight(l light.Light) bool

	// Lights returns the free-standing lights.
	//
	// Returns:
	//   - []light.Light: a copy of the light list
	Lights() []light.Light

	// AddUI queues a UI draw item. UI items persist until ClearUI is called.
	//
	// Parameters:
	//   - item: the UI item
	AddUI(item snapshot.UIDrawItem)

	// ClearUI removes every UI item.
	ClearUI()

	// Update advances every object by dt, fanning the work out across the compute workers.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// Close stops the compute workers.
	Close()
}

var _ Scene = &scene{}

// NewScene creates a new, active Scene.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:             &sync.RWMutex{},
		name:           "scene",
		active:         true,
		ambient:        gputypes.NewColorRGB(0.1, 0.1, 0.1),
		index:          make(map[uint64]int),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Created after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Ambient() gputypes.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *scene) SetAmbient(c gputypes.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = c
}

func (s *scene) Add(objects ...game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(objects)
}

// add registers objects. Caller must hold the write lock.
func (s *scene) add(objects []game_object.GameObject) {
	for _, obj := range objects {
		if obj == nil {
			continue
		}
		if i, ok := s.index[obj.ID()]; ok {
			s.objects[i] = obj
			continue
		}
		s.index[obj.ID()] = len(s.objects)
		s.objects = append(s.objects, obj)
	}
}

func (s *scene) Get(id uint64) (game_object.GameObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.objects[i], true
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.objects); j++ {
		s.index[s.objects[j].ID()] = j
	}
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.index = make(map[uint64]int)
	s.lights = nil
	s.ui = nil
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.objects)
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
}

func (s *scene) RemoveLight(l light.Light) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.lights, l)
	if i < 0 {
		return false
	}
	s.lights = slices.Delete(s.lights, i, i+1)
	return true
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) AddUI(item snapshot.UIDrawItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = append(s.ui, item)
}

func (s *scene) ClearUI() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = nil
}

func (s *scene) Update(dt float32) {
	objects := s.Objects()
	n := len(objects)
	if n == 0 {
		return
	}

	// Workers are reused across ticks; ParallelFor provides the per-tick barrier.
	size := (n + s.computeWorkers*updateChunksPerWorker - 1) / (s.computeWorkers * updateChunksPerWorker)
	chunks := (n + size - 1) / size
	common.ParallelFor(s.computePool, chunks, func(c int) {
		start := c * size
		end := min(start+size, n)
		for _, obj := range objects[start:end] {
			obj.Update(dt)
		}
	})
}

// OnRenderSnapshot copies the scene into snap: the camera for the main target, then objects
// in insertion order, then lights (free-standing first, then attached), then UI items.
func (s *scene) OnRenderSnapshot(target snapshot.TargetType, snap *snapshot.RenderSnapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return
	}

	if s.cam != nil {
		s.cam.OnRenderSnapshot(target, snap)
	}
	snap.Ambient = s.ambient

	var attached []light.Light
	for _, obj := range s.objects {
		if !obj.Enabled() {
			continue
		}
		if ro, ok := obj.RenderObject(); ok {
			snap.AddObject(ro)
		}
		if l := obj.Light(); l != nil {
			attached = append(attached, l)
		}
	}

	seen := make(map[light.Light]struct{}, len(s.lights)+len(attached))
	for _, l := range append(slices.Clone(s.lights), attached...) {
		if _, dup := seen[l]; dup || !l.Enabled() {
			continue
		}
		seen[l] = struct{}{}
		snap.AddLight(l.Data())
	}

	for _, item := range s.ui {
		snap.AddUI(item)
	}
	common.Logger().Debug("scene snapshot",
		"scene", s.name,
		"target", target.String(),
		"objects", len(snap.Objects),
		"lights", len(snap.Lights))
}

func (s *scene) Close() {
	s.computePool.Stop()
}
