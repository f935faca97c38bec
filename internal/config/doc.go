// Package config loads run settings.
//
// Settings start from Default and may be overridden by a JSON5 file and then
// by a sibling "<name>.local.<ext>" file, the way the rest of our tools layer
// configuration. Command-line flags are applied on top by the cli package.
//
// Durations are written in Go syntax, for example "3s" or "500ms".
//
//	{
//	  output_dir: "~/promoter-events",
//	  upcoming_url: "https://ra.co/promoters/105908/events",
//	  retry: { max_attempts: 5, backoff: "10s" },
//	  collector: { challenge_guard: false },
//	}
package config
