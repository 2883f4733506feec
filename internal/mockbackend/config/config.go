package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`
}

type PipelineConfig struct {
	// ScenarioPath points at a YAML file of canned claims per worldview.
	// When empty or no entry matches, claims are synthesized
	// deterministically from the worldview text.
	ScenarioPath string `json:"scenario_path,omitempty"`

	// StreamDelay is the pause between emitted events, so progressive
	// rendering is actually observable during development.
	StreamDelay Duration `json:"stream_delay,omitempty"`

	// MaxParallelVerify bounds concurrent claim verification.
	MaxParallelVerify int `json:"max_parallel_verify,omitempty"`

	// ClaimsPerBuild is the number of synthesized derivative claims when
	// no scenario entry matches.
	ClaimsPerBuild int `json:"claims_per_build,omitempty"`
}

type Config struct {
	Env      string         `json:"env"`
	HTTP     HTTPConfig     `json:"http"`
	Pipeline PipelineConfig `json:"pipeline"`
}
