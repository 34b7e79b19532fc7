package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func passingChecker(name string) Checker {
	return NewFuncChecker(name, func(ctx context.Context) error { return nil })
}

func failingChecker(name string) Checker {
	return NewFuncChecker(name, func(ctx context.Context) error {
		return errors.New(name + " unavailable")
	})
}

func TestCheckerRegistry(t *testing.T) {
	t.Run("all passing is healthy", func(t *testing.T) {
		registry := NewCheckerRegistry()
		registry.Register(passingChecker("broker"))
		registry.RegisterOptional(passingChecker("cache"))

		h := registry.Check(context.Background())
		assert.Equal(t, StatusHealthy, h.Status)
		assert.Equal(t, StatusHealthy, h.Checks["broker"].Status)
		assert.Equal(t, StatusHealthy, h.Checks["cache"].Status)
	})

	t.Run("failing optional checker degrades", func(t *testing.T) {
		registry := NewCheckerRegistry()
		registry.Register(passingChecker("broker"))
		registry.RegisterOptional(failingChecker("cache"))

		h := registry.Check(context.Background())
		assert.Equal(t, StatusDegraded, h.Status)
		assert.Equal(t, StatusDegraded, h.Checks["cache"].Status)
		assert.Equal(t, "cache unavailable", h.Checks["cache"].Message)
	})

	t.Run("failing required checker is unhealthy", func(t *testing.T) {
		registry := NewCheckerRegistry()
		registry.Register(failingChecker("broker"))
		registry.RegisterOptional(failingChecker("cache"))

		h := registry.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, h.Status)
		assert.Equal(t, StatusUnhealthy, h.Checks["broker"].Status)
		assert.Equal(t, StatusDegraded, h.Checks["cache"].Status)
	})
}
