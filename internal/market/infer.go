package market

import "strings"

// componentPatterns maps each component type to substrings that identify it in
// free listing text. French terms are included since LeBonCoin and Vinted
// listings are mostly French. Order matters: more specific categories are
// checked before generic ones (a "CPU cooler" must not be classified as CPU).
var componentPatterns = []struct {
	Type     ComponentType
	Patterns []string
}{
	{ComponentCPUCooler, []string{"cpu cooler", "ventirad", "watercooling", "aio ", "noctua nh", "hyper 212", "refroidisseur"}},
	{ComponentGraphicCard, []string{"carte graphique", "graphics card", "video card", "geforce", "radeon", "rtx ", "gtx ", "rx 5", "rx 6", "rx 7", "gpu"}},
	{ComponentMotherboard, []string{"carte mère", "carte mere", "motherboard", "mainboard", "z790", "z690", "b650", "b550", "x670", "am4", "am5", "lga1700"}},
	{ComponentCPU, []string{"processeur", "intel core", "amd ryzen", "ryzen ", "i3-", "i5-", "i7-", "i9-", "xeon", "threadripper"}},
	{ComponentMemory, []string{"mémoire", "memoire", "ddr3", "ddr4", "ddr5", "ram ", "dimm", "sodimm", "corsair vengeance", "g.skill"}},
	{ComponentHardDrive, []string{"disque dur", "hard drive", "nvme", "ssd", "hdd", "sata", "m.2", "barracuda", "ironwolf"}},
	{ComponentPowerSupply, []string{"alimentation", "power supply", "psu", "80plus", "80+ gold", "80+ bronze", "modulaire", "650w", "750w", "850w"}},
	{ComponentCase, []string{"boîtier", "boitier", "pc case", "tour pc", "mid tower", "full tower", "atx case"}},
}

// InferComponentType guesses the component type from free text. Returns the
// empty ComponentType when nothing matches; callers treat unknown as
// unfiltered.
func InferComponentType(text string) ComponentType {
	lower := strings.ToLower(text)
	for _, entry := range componentPatterns {
		for _, p := range entry.Patterns {
			if strings.Contains(lower, p) {
				return entry.Type
			}
		}
	}
	return ""
}
