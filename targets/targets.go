package targets

import (
	_ "embed"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/hwinit/hwerr"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

func All() Targets {
	return targets
}

type Targets []TargetInfo
type TargetInfo struct {
	Family      string   `yaml:"family"`
	Description string   `yaml:"description"`
	Language    string   `yaml:"language"`
	Crate       string   `yaml:"crate"`
	Aliases     []string `yaml:"aliases"`
	Ports       []string `yaml:"ports"`
	Timers      []string `yaml:"timers"`
	Serials     []string `yaml:"serials"`
}

func (t TargetInfo) HasTimer(name string) bool {
	return slices.Contains(t.Timers, strings.ToLower(name))
}

func (t TargetInfo) HasPort(letter string) bool {
	return slices.Contains(t.Ports, strings.ToLower(letter))
}

func (t TargetInfo) HasSerial(name string) bool {
	return slices.Contains(t.Serials, strings.ToLower(name))
}

func (t Targets) FindByFamily(name string) (TargetInfo, error) {
	for _, target := range t {
		if target.Family == strings.ToLower(name) {
			return target, nil
		}
	}
	return TargetInfo{}, hwerr.UnknownIdentity(hwerr.ErrUnknownDeviceKind, name, "")
}

// FindByAlias matches name case-insensitively against every family's aliases.
func (t Targets) FindByAlias(name string) (TargetInfo, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, target := range t {
		if target.Family == key || slices.Contains(target.Aliases, key) {
			return target, nil
		}
	}
	return TargetInfo{}, hwerr.UnknownIdentity(hwerr.ErrUnknownDeviceKind, name, "")
}

func init() {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(rawTargets, &t); err != nil {
		panic(err)
	}

	targets = t.Elements
}
