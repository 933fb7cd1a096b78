// Package config handles loading and validating hirograph client configuration.
//
// This package manages:
//   - Loading named connection profiles from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, client secrets) should be set via
//     environment variables rather than stored in the config file
//   - The config file should have restricted permissions (0600)
//   - tls.accept_all disables certificate verification and must never be
//     enabled outside development
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/hirograph.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile := cfg.DefaultProfile()
//	fmt.Println(profile.RootURL)
package config
