// Package config defines the explicit configuration values threaded through
// the pipeline and the environment-backed settings used by the binaries.
package config

import (
	"errors"
	"fmt"
	"time"

	"discoverydraft-backend/models"
)

// DefaultItemLimit is the per-document item cap used when none is configured
const DefaultItemLimit = 120

// RetryConfig holds retry configuration for render submissions
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request, including the first.
	MaxAttempts int

	// BackoffBase is the wait before the second attempt.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the wait on each further attempt.
	BackoffMultiplier float64

	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the retry settings used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
	}
}

// Backoff returns the wait after the given failed attempt (1-based)
func (r RetryConfig) Backoff(attempt int) time.Duration {
	wait := float64(r.BackoffBase)
	for i := 1; i < attempt; i++ {
		wait *= r.BackoffMultiplier
	}
	d := time.Duration(wait)
	if r.MaxBackoff > 0 && d > r.MaxBackoff {
		d = r.MaxBackoff
	}
	return d
}

// PipelineConfig is passed explicitly to every pipeline run
type PipelineConfig struct {
	// ItemLimits caps items per document set, per document type.
	ItemLimits map[models.DocumentType]int

	RendererEndpoint string
	RendererToken    string

	// RequestTimeout bounds a single render attempt.
	RequestTimeout time.Duration

	Retry RetryConfig

	// Concurrency is the number of render submissions in flight.
	Concurrency int

	// TaxonomyVersion must match the loaded flag registry.
	TaxonomyVersion string

	// ContinueOnFailure treats failed render requests as a partial outcome
	// rather than a failed run. The pipeline itself never consults it.
	ContinueOnFailure bool
}

// DefaultPipelineConfig returns defaults for every field except the
// renderer endpoint and taxonomy version.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ItemLimits: map[models.DocumentType]int{
			models.DocSROGs:      DefaultItemLimit,
			models.DocPODs:       DefaultItemLimit,
			models.DocAdmissions: DefaultItemLimit,
		},
		RequestTimeout:    30 * time.Second,
		Retry:             DefaultRetryConfig(),
		Concurrency:       4,
		ContinueOnFailure: true,
	}
}

// ItemLimit returns the configured limit for a document type
func (c PipelineConfig) ItemLimit(docType models.DocumentType) int {
	return c.ItemLimits[docType]
}

// Validate checks the configuration against the loaded registry version
func (c PipelineConfig) Validate(registryVersion string) error {
	var errs []error
	for _, docType := range models.DocumentTypes {
		if c.ItemLimits[docType] < 1 {
			errs = append(errs, fmt.Errorf("item limit for %s must be at least 1", docType))
		}
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Retry.BackoffBase < 0 || c.Retry.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("retry backoff must be non-negative with multiplier >= 1"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.TaxonomyVersion != "" && c.TaxonomyVersion != registryVersion {
		errs = append(errs, fmt.Errorf("taxonomy version %q does not match registry %q", c.TaxonomyVersion, registryVersion))
	}
	return errors.Join(errs...)
}
