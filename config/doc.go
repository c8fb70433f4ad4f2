// Package config provides configuration types and loading for the
// instrumented HTTP client.
//
// The configuration model covers the credential cache location, span
// naming and header attribute limits, retry and circuit breaker tuning,
// metrics, logging, and tracing. Files are YAML with environment
// variable substitution using the ${VAR:-default} syntax.
//
// Load applies defaults and validates eagerly; all field errors are
// collected and returned wrapped in ErrInvalidConfig:
//
//	cfg, err := config.Load("client.yaml")
//	if errors.Is(err, config.ErrInvalidConfig) {
//	    log.Fatal(err)
//	}
package config
