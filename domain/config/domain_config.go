package config

import "fmt"

// DomainConfig holds the bounds applied to a knowledge base
type DomainConfig struct {
	// MaxTraversalDepth bounds how many concepts deep a transitive closure or
	// an isa inheritance walk may go before it is reported as exceeded.
	MaxTraversalDepth int

	// MaxImplicationDepth bounds the length of a relation implication chain
	MaxImplicationDepth int

	// RandomSeed seeds Concept.Any. Zero means seed from the clock.
	RandomSeed int64
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxTraversalDepth:   1024,
		MaxImplicationDepth: 64,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Served knowledge bases are edited by hand; keep runaway walks short
	config.MaxTraversalDepth = 256
	config.MaxImplicationDepth = 32

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.MaxTraversalDepth = 4096
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxTraversalDepth < 1 {
		return fmt.Errorf("max traversal depth must be positive, got %d", c.MaxTraversalDepth)
	}
	if c.MaxImplicationDepth < 1 {
		return fmt.Errorf("max implication depth must be positive, got %d", c.MaxImplicationDepth)
	}
	return nil
}
