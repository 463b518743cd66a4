package device

import (
	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/targets"
)

// Kind tags the device family a Config belongs to. The set is closed; adding
// a family means adding a Kind here and registering a lowering strategy.
type Kind uint8

const (
	KindDummy Kind = iota
	KindStm32f1xx
	KindTinyGo
)

var kindFamilies = [...]string{
	KindDummy:     "dummy",
	KindStm32f1xx: "stm32f1xx",
	KindTinyGo:    "tinygo",
}

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{KindDummy, KindStm32f1xx, KindTinyGo}
}

// ParseKind resolves a family name or alias through the target catalog.
func ParseKind(name string) (Kind, error) {
	info, err := targets.All().FindByAlias(name)
	if err != nil {
		return 0, err
	}
	for k, family := range kindFamilies {
		if family == info.Family {
			return Kind(k), nil
		}
	}
	return 0, hwerr.UnknownIdentity(hwerr.ErrUnknownDeviceKind, name, "family %s has no configuration variant", info.Family)
}

func (k Kind) String() string {
	if int(k) < len(kindFamilies) {
		return kindFamilies[k]
	}
	return "unknown"
}

// Target returns the catalog entry for the kind.
func (k Kind) Target() (targets.TargetInfo, error) {
	if int(k) >= len(kindFamilies) {
		return targets.TargetInfo{}, hwerr.UnknownIdentity(hwerr.ErrUnknownDeviceKind, k.String(), "")
	}
	return targets.All().FindByFamily(kindFamilies[k])
}
