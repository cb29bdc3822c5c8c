package window

import "testing"

func TestNewEngineWindowOptions(t *testing.T) {
	tests := []struct {
		name    string
		options []WindowBuilderOption
		width   uint32
		height  uint32
		api     API
		vsync   bool
	}{
		{"defaults", nil, 1280, 720, APIWebGPU, true},
		{"opengl", []WindowBuilderOption{WithAPI(APIOpenGL), WithVSync(false)}, 1280, 720, APIOpenGL, false},
		{"sized", []WindowBuilderOption{WithWidth(800), WithHeight(600)}, 800, 600, APIWebGPU, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newEngineWindow(tt.options...)
			if width, height := w.Size(); width != tt.width || height != tt.height {
				t.Errorf("Size() = %d, %d, want %d, %d", width, height, tt.width, tt.height)
			}
			if w.API() != tt.api {
				t.Errorf("API() = %v, want %v", w.API(), tt.api)
			}
			if w.vsync != tt.vsync {
				t.Errorf("vsync = %v, want %v", w.vsync, tt.vsync)
			}
		})
	}
}

func TestUninitializedWindow(t *testing.T) {
	w := newEngineWindow(WithAPI(APIOpenGL))
	if w.IsRunning() {
		t.Error("IsRunning() = true before the platform window exists")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("SurfaceDescriptor() != nil before the platform window exists")
	}
	if w.GLContext() != nil {
		t.Error("GLContext() != nil before the platform window exists")
	}
	if err := w.Close(); err == nil {
		t.Error("Close() = nil, want an error for an uninitialized window")
	}
}

func TestWithSizeLimits(t *testing.T) {
	w := newEngineWindow(WithSizeLimits(320, 0, 3840, -1))
	if w.minWidth != 320 || w.maxWidth != 3840 {
		t.Errorf("width limits = %d..%d, want 320..3840", w.minWidth, w.maxWidth)
	}
	if w.minHeight != 200 || w.maxHeight != 1200 {
		t.Errorf("height limits = %d..%d, want the defaults 200..1200", w.minHeight, w.maxHeight)
	}
}
