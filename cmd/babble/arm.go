package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/c-e-smith/explauto/internal/space"
)

// #region arm

// Arm is a planar kinematic chain: joint angles in, hand position out. Link
// lengths sum to 1 so the hand stays inside the unit disc.
type Arm struct {
	lengths []float64
	noise   float64 // sensory noise std, as a fraction of the sensory range
	motor   space.Space
	sensory space.Space
	rng     *rand.Rand
}

// NewArm builds an arm with equal-length links. The motor and sensory spaces
// are validated here once so the accessors stay infallible.
func NewArm(joints int, noise float64, seed int64) (*Arm, error) {
	if joints < 1 {
		return nil, fmt.Errorf("arm: joints must be >= 1, got %d", joints)
	}
	if noise < 0 {
		return nil, fmt.Errorf("arm: noise must be >= 0, got %g", noise)
	}
	motor, err := space.Uniform(joints, -math.Pi/3, math.Pi/3)
	if err != nil {
		return nil, fmt.Errorf("arm motor space: %w", err)
	}
	sensory, err := space.Uniform(2, -1, 1)
	if err != nil {
		return nil, fmt.Errorf("arm sensory space: %w", err)
	}
	lengths := make([]float64, joints)
	for i := range lengths {
		lengths[i] = 1 / float64(joints)
	}
	return &Arm{
		lengths: lengths,
		noise:   noise,
		motor:   motor,
		sensory: sensory,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// MotorSpace bounds each joint to a third of a half-turn either way.
func (a *Arm) MotorSpace() space.Space {
	return a.motor
}

// SensorySpace is the hand position square.
func (a *Arm) SensorySpace() space.Space {
	return a.sensory
}

// Execute runs forward kinematics on the joint angles and returns the noisy
// hand position.
func (a *Arm) Execute(m []float64) ([]float64, error) {
	if len(m) != len(a.lengths) {
		return nil, fmt.Errorf("arm: expected %d joint angles, got %d", len(a.lengths), len(m))
	}
	var x, y, angle float64
	for i, l := range a.lengths {
		angle += m[i]
		x += l * math.Cos(angle)
		y += l * math.Sin(angle)
	}
	if a.noise > 0 {
		x += a.rng.NormFloat64() * a.noise * 2
		y += a.rng.NormFloat64() * a.noise * 2
	}
	return []float64{x, y}, nil
}

// #endregion arm
