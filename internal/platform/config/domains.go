package config

import "time"

// PreviewConfig holds the batch endpoint and fetcher limits.
type PreviewConfig struct {
	BatchMax     int           `env:"PREVIEW_BATCH_MAX" envDefault:"6"`
	FetchTimeout time.Duration `env:"PREVIEW_FETCH_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes int64         `env:"PREVIEW_MAX_BODY_BYTES" envDefault:"5242880"`
	FetchRPS     float64       `env:"PREVIEW_FETCH_RPS" envDefault:"10"`
	DomainRPS    float64       `env:"PREVIEW_DOMAIN_RPS" envDefault:"4"`
	DomainBurst  int           `env:"PREVIEW_DOMAIN_BURST" envDefault:"6"`
	ClientRPM    float64       `env:"PREVIEW_CLIENT_RPM" envDefault:"30"`
	ClientBurst  int           `env:"PREVIEW_CLIENT_BURST" envDefault:"10"`
	// ClientIdleTTL is how long a client's rate limiter is kept after its last request.
	ClientIdleTTL time.Duration `env:"PREVIEW_CLIENT_IDLE_TTL" envDefault:"10m"`
	// AllowPrivateHosts lets the fetcher reach loopback and private addresses.
	AllowPrivateHosts bool `env:"PREVIEW_ALLOW_PRIVATE_HOSTS" envDefault:"false"`
}

// SourcesConfig holds the origins of the supported listing sites.
type SourcesConfig struct {
	QuestStoreOrigin string `env:"QUESTSTORE_ORIGIN" envDefault:"https://www.oculus.com"`
	ExperienceOrigin string `env:"EXPERIENCE_ORIGIN" envDefault:"https://www.meta.com"`
}
