package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`
	ChainID         string `yaml:"chain_id" json:"chain_id"`

	GenesisHeight uint64 `yaml:"genesis_height" json:"genesis_height"`
	DefaultAdmin  string `yaml:"default_admin" json:"default_admin"`
	// Admins overrides default_admin per component name.
	Admins     map[string]string `yaml:"admins" json:"admins,omitempty"`
	AutoDeploy []string          `yaml:"auto_deploy" json:"auto_deploy,omitempty"`

	BlockIntervalMs      int    `yaml:"block_interval_ms" json:"block_interval_ms"`
	SnapshotEveryHeights uint64 `yaml:"snapshot_every_heights" json:"snapshot_every_heights"`
	StrictAwardCheck     bool   `yaml:"strict_award_check" json:"strict_award_check"`
	InboxSize            int    `yaml:"inbox_size" json:"inbox_size"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      protocol.Version,
		ChainID:              "procure-1",
		GenesisHeight:        10000,
		DefaultAdmin:         "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
		AutoDeploy:           componentNames(),
		BlockIntervalMs:      0,
		SnapshotEveryHeights: 0,
		StrictAwardCheck:     false,
		InboxSize:            1024,
	}
}

// Load reads path over Defaults(), so omitted keys keep their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Save writes t as YAML; a server stores the effective tuning beside each run so the run
// can be replayed with the same configuration.
func Save(path string, t Tuning) error {
	b, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (t Tuning) Validate() error {
	var errs []error
	if t.ProtocolVersion != "" && t.ProtocolVersion != protocol.Version {
		errs = append(errs, fmt.Errorf("protocol_version %q not supported (want %q)", t.ProtocolVersion, protocol.Version))
	}
	if strings.TrimSpace(t.DefaultAdmin) == "" {
		errs = append(errs, errors.New("default_admin is required"))
	}
	for name := range t.Admins {
		if _, ok := protocol.DeployTargets(name); !ok {
			errs = append(errs, fmt.Errorf("admins: unknown component %q", name))
		}
	}
	for _, name := range t.AutoDeploy {
		if _, ok := protocol.DeployTargets(name); !ok {
			errs = append(errs, fmt.Errorf("auto_deploy: unknown component %q", name))
		}
	}
	if t.BlockIntervalMs < 0 {
		errs = append(errs, errors.New("block_interval_ms must be >= 0"))
	}
	if t.InboxSize < 0 {
		errs = append(errs, errors.New("inbox_size must be >= 0"))
	}
	return errors.Join(errs...)
}

// AdminMap resolves Admins keys (aliases allowed) to components.
func (t Tuning) AdminMap() map[protocol.Component]protocol.Principal {
	out := make(map[protocol.Component]protocol.Principal, len(t.Admins))
	for name, p := range t.Admins {
		comps, ok := protocol.DeployTargets(name)
		if !ok || strings.TrimSpace(p) == "" {
			continue
		}
		for _, c := range comps {
			out[c] = protocol.Principal(strings.TrimSpace(p))
		}
	}
	return out
}

// DeployList resolves AutoDeploy to components, dropping duplicates.
func (t Tuning) DeployList() []protocol.Component {
	seen := map[protocol.Component]bool{}
	var out []protocol.Component
	for _, name := range t.AutoDeploy {
		comps, _ := protocol.DeployTargets(name)
		for _, c := range comps {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ChainConfig maps the tuning onto a chain configuration.
func (t Tuning) ChainConfig() chain.Config {
	return chain.Config{
		ID:                   t.ChainID,
		GenesisHeight:        t.GenesisHeight,
		DefaultAdmin:         protocol.Principal(strings.TrimSpace(t.DefaultAdmin)),
		Admins:               t.AdminMap(),
		StrictAwardCheck:     t.StrictAwardCheck,
		BlockInterval:        time.Duration(t.BlockIntervalMs) * time.Millisecond,
		SnapshotEveryHeights: t.SnapshotEveryHeights,
		InboxSize:            t.InboxSize,
	}
}

func componentNames() []string {
	out := make([]string, 0, len(protocol.Components))
	for _, c := range protocol.Components {
		out = append(out, string(c))
	}
	return out
}
