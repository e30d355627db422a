package config

import (
	"vlife/internal/geom"
	"vlife/internal/physics"
)

// WorldConfig controls the size and static content of the petri dish.
type WorldConfig struct {
	Width  float64 `yaml:"width" env:"WIDTH" validate:"gt=0"`
	Height float64 `yaml:"height" env:"HEIGHT" validate:"gt=0"`
	// Obstacles are closed polygons given as lists of [x, y] points.
	Obstacles [][][2]float64 `yaml:"obstacles,omitempty" validate:"dive,min=3"`
}

// DefaultWorldConfig returns the default 800x600 dish with no obstacles.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Width:  800,
		Height: 600,
	}
}

// Size returns the world size as a vector.
func (w WorldConfig) Size() geom.Vec2 {
	return geom.V(w.Width, w.Height)
}

// Polygons returns the obstacles as point lists.
func (w WorldConfig) Polygons() [][]geom.Vec2 {
	if len(w.Obstacles) == 0 {
		return nil
	}
	out := make([][]geom.Vec2, 0, len(w.Obstacles))
	for _, obstacle := range w.Obstacles {
		points := make([]geom.Vec2, len(obstacle))
		for i, p := range obstacle {
			points[i] = geom.V(p[0], p[1])
		}
		out = append(out, points)
	}
	return out
}

// PhysicsConfig controls the physics engine.
type PhysicsConfig struct {
	ResponseCoef float64 `yaml:"response_coef" env:"RESPONSE_COEF" validate:"gt=0,lte=1"`
	SubSteps     int     `yaml:"sub_steps" env:"SUB_STEPS" validate:"gte=1,lte=20"`
	GravityX     float64 `yaml:"gravity_x" env:"GRAVITY_X"`
	GravityY     float64 `yaml:"gravity_y" env:"GRAVITY_Y"`
	Drag         float64 `yaml:"drag" env:"DRAG" validate:"gte=0"`
	Walls        string  `yaml:"walls" env:"WALLS" validate:"oneof=soft bounce"`
	Restitution  float64 `yaml:"restitution" env:"RESTITUTION" validate:"gte=0,lte=1"`
	Friction     float64 `yaml:"friction" env:"FRICTION" validate:"gte=0,lte=1"`
}

// DefaultPhysicsConfig returns the engine defaults.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		ResponseCoef: physics.DefaultResponseCoef,
		SubSteps:     physics.DefaultSubSteps,
		Walls:        string(physics.WallSoft),
		Restitution:  physics.DefaultRestitution,
		Friction:     physics.DefaultFriction,
	}
}

// EngineConfig translates the section into an engine configuration.
func (p PhysicsConfig) EngineConfig(worldSize geom.Vec2) physics.Config {
	return physics.Config{
		WorldSize:    worldSize,
		ResponseCoef: p.ResponseCoef,
		SubSteps:     p.SubSteps,
		Gravity:      geom.V(p.GravityX, p.GravityY),
		Drag:         p.Drag,
		Walls:        physics.WallMode(p.Walls),
		Restitution:  p.Restitution,
		Friction:     p.Friction,
	}
}
