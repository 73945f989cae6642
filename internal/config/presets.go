// internal/config/presets.go
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/launch-trader/internal/bot"
)

// Preset is a bot the operator starts at boot. Presets skip the credential
// check: whoever can edit the file already owns the process.
type Preset struct {
	Wallet  string            `yaml:"wallet"`
	Buy     *bot.BuyConfig    `yaml:"buy"`
	Sell    *bot.SellConfig   `yaml:"sell"`
	Filters *bot.FilterConfig `yaml:"filters"`
}

// Overrides returns the preset as registry overrides.
func (p Preset) Overrides() bot.Overrides {
	return bot.Overrides{Buy: p.Buy, Sell: p.Sell, Filters: p.Filters}
}

type presetFile struct {
	Bots []Preset `yaml:"bots"`
}

// LoadPresets reads a YAML presets file. Every preset must name a wallet
// and produce a valid configuration.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Bots))
	for i, p := range file.Bots {
		p.Wallet = strings.TrimSpace(p.Wallet)
		if p.Wallet == "" {
			return nil, fmt.Errorf("preset %d: wallet is required", i)
		}
		if seen[p.Wallet] {
			return nil, fmt.Errorf("preset %d: duplicate wallet %s", i, p.Wallet)
		}
		seen[p.Wallet] = true
		if err := p.Overrides().Apply(bot.DefaultConfig()).Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Wallet, err)
		}
		file.Bots[i] = p
	}
	return file.Bots, nil
}
