package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// providerOverride is one provider's tuning block in the overrides file.
// Pointer fields distinguish "absent" from zero.
type providerOverride struct {
	APIURL             *string `yaml:"api_url"`
	ChunkSize          *int    `yaml:"chunk_size"`
	RequestDelayMillis *int    `yaml:"request_delay_ms"`
}

type overridesFile struct {
	Instantly     providerOverride `yaml:"instantly"`
	Apollo        providerOverride `yaml:"apollo"`
	Phantombuster providerOverride `yaml:"phantombuster"`
	Sinch         providerOverride `yaml:"sinch"`
}

// ApplyOverridesFile layers a YAML tuning file over the environment-derived
// provider settings. Ops use this to react to provider limit changes without
// a deploy; anything not present in the file is left alone.
func (p *ProvidersConfig) ApplyOverridesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading overrides file: %w", err)
	}

	var overrides overridesFile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parsing overrides file %s: %w", path, err)
	}

	overrides.Instantly.apply(&p.Instantly.APIURL, &p.Instantly.ChunkSize, &p.Instantly.RequestDelayMillis)
	overrides.Apollo.apply(&p.Apollo.APIURL, &p.Apollo.ChunkSize, &p.Apollo.RequestDelayMillis)
	overrides.Sinch.apply(&p.Sinch.APIURL, &p.Sinch.ChunkSize, &p.Sinch.RequestDelayMillis)

	if overrides.Phantombuster.APIURL != nil {
		p.Phantombuster.APIURL = *overrides.Phantombuster.APIURL
	}

	return nil
}

func (o providerOverride) apply(apiURL *string, chunkSize, delayMillis *int) {
	if o.APIURL != nil {
		*apiURL = *o.APIURL
	}
	if o.ChunkSize != nil {
		*chunkSize = *o.ChunkSize
	}
	if o.RequestDelayMillis != nil {
		*delayMillis = *o.RequestDelayMillis
	}
}
