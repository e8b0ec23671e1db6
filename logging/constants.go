package logging

// These constants are used to identify the various services that may do some logging
const (
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
	// CODEGEN_SERVICE is the constant used to identify the codegen package
	CODEGEN_SERVICE = "codegen"
	// HARNESS_SERVICE is the constant used to identify the harness runtime package
	HARNESS_SERVICE = "harness"
)
