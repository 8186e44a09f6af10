package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Fluid.SmoothingRadius <= 0 {
		t.Errorf("smoothing_radius = %v, want > 0", cfg.Fluid.SmoothingRadius)
	}
	if cfg.Fluid.TimeStep <= 0 {
		t.Errorf("time_step = %v, want > 0", cfg.Fluid.TimeStep)
	}
	if cfg.Derived.CellSize != cfg.Fluid.SmoothingRadius {
		t.Errorf("derived cell size = %v, want smoothing radius %v", cfg.Derived.CellSize, cfg.Fluid.SmoothingRadius)
	}
	if cfg.Derived.Gravity.Y >= 0 {
		t.Errorf("derived gravity = %v, want downward", cfg.Derived.Gravity)
	}
	if math.Abs(cfg.Scene.Block.Spacing-cfg.Fluid.Radius/2) > 1e-12 {
		t.Errorf("block spacing = %v, want radius/2", cfg.Scene.Block.Spacing)
	}
	if _, ok := cfg.Derived.ColliderIndex["floor"]; !ok {
		t.Error("expected floor collider in index")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte(`
fluid:
  viscosity: 7.5
grid:
  cell_size: 2.5
  neighborhood: reduced
scene:
  colliders:
    - name: ground
      position: [0, -1, 0]
      right: [1, 0, 0]
      up: [0, 0, 1]
      half_extents: [5, 5]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Fluid.Viscosity != 7.5 {
		t.Errorf("viscosity = %v, want 7.5", cfg.Fluid.Viscosity)
	}
	// Fields absent from the overlay keep their defaults
	if cfg.Fluid.Mass != 4.0 {
		t.Errorf("mass = %v, want default 4.0", cfg.Fluid.Mass)
	}
	if cfg.Derived.CellSize != 2.5 {
		t.Errorf("derived cell size = %v, want 2.5", cfg.Derived.CellSize)
	}
	if cfg.Grid.Neighborhood != "reduced" {
		t.Errorf("neighborhood = %q, want reduced", cfg.Grid.Neighborhood)
	}
	if len(cfg.Scene.Colliders) != 1 {
		t.Fatalf("colliders = %d, want 1 (lists replace defaults)", len(cfg.Scene.Colliders))
	}
	if idx, ok := cfg.Derived.ColliderIndex["ground"]; !ok || idx != 0 {
		t.Errorf("ColliderIndex[ground] = %d, %v", idx, ok)
	}
	if _, ok := cfg.Derived.ColliderIndex["floor"]; ok {
		t.Error("stale default collider left in index")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Fluid.GasConstant = 1234

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config: %v", err)
	}
	if loaded.Fluid.GasConstant != 1234 {
		t.Errorf("gas_constant = %v, want 1234", loaded.Fluid.GasConstant)
	}
	if len(loaded.Scene.Colliders) != len(cfg.Scene.Colliders) {
		t.Errorf("colliders = %d, want %d", len(loaded.Scene.Colliders), len(cfg.Scene.Colliders))
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("expected panic from Cfg before Init")
		}
	}()
	Cfg()
}
