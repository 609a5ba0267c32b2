package gw2

import (
	"fmt"
	"sort"
	"strings"
)

// Profession is base class metadata: display name plus embed colour.
type Profession struct {
	Name  string
	Color int
}

// Specialization is an elite specialization and the profession it
// belongs to.
type Specialization struct {
	Name       string
	Profession string
}

var Professions = map[string]Profession{
	"Elementalist": {"Elementalist", 0xF68A35},
	"Engineer":     {"Engineer", 0xB77C34},
	"Guardian":     {"Guardian", 0x0C8FD6},
	"Mesmer":       {"Mesmer", 0xB46DFF},
	"Necromancer":  {"Necromancer", 0x3A9D23},
	"Ranger":       {"Ranger", 0x4B8E4B},
	"Revenant":     {"Revenant", 0x79236F},
	"Thief":        {"Thief", 0xA02E2D},
	"Warrior":      {"Warrior", 0xC7892B},
}

var Specializations = map[string]Specialization{
	"Tempest":  {"Tempest", "Elementalist"},
	"Weaver":   {"Weaver", "Elementalist"},
	"Catalyst": {"Catalyst", "Elementalist"},
	"Evoker":   {"Evoker", "Elementalist"},

	"Scrapper":  {"Scrapper", "Engineer"},
	"Holosmith": {"Holosmith", "Engineer"},
	"Mechanist": {"Mechanist", "Engineer"},
	"Amalgam":   {"Amalgam", "Engineer"},

	"Dragonhunter": {"Dragonhunter", "Guardian"},
	"Firebrand":    {"Firebrand", "Guardian"},
	"Willbender":   {"Willbender", "Guardian"},
	"Luminary":     {"Luminary", "Guardian"},

	"Chronomancer": {"Chronomancer", "Mesmer"},
	"Mirage":       {"Mirage", "Mesmer"},
	"Virtuoso":     {"Virtuoso", "Mesmer"},
	"Troubadour":   {"Troubadour", "Mesmer"},

	"Reaper":    {"Reaper", "Necromancer"},
	"Scourge":   {"Scourge", "Necromancer"},
	"Harbinger": {"Harbinger", "Necromancer"},
	"Ritualist": {"Ritualist", "Necromancer"},

	"Druid":     {"Druid", "Ranger"},
	"Soulbeast": {"Soulbeast", "Ranger"},
	"Untamed":   {"Untamed", "Ranger"},
	"Galeshot":  {"Galeshot", "Ranger"},

	"Herald":     {"Herald", "Revenant"},
	"Renegade":   {"Renegade", "Revenant"},
	"Vindicator": {"Vindicator", "Revenant"},
	"Conduit":    {"Conduit", "Revenant"},

	"Daredevil": {"Daredevil", "Thief"},
	"Deadeye":   {"Deadeye", "Thief"},
	"Specter":   {"Specter", "Thief"},
	"Antiquary": {"Antiquary", "Thief"},

	"Berserker":    {"Berserker", "Warrior"},
	"Spellbreaker": {"Spellbreaker", "Warrior"},
	"Bladesworn":   {"Bladesworn", "Warrior"},
	"Paragon":      {"Paragon", "Warrior"},
}

// ClassChoices lists every profession and elite spec name, sorted, for
// slash-command choices.
func ClassChoices() []string {
	out := make([]string, 0, len(Professions)+len(Specializations))
	for name := range Professions {
		out = append(out, name)
	}
	for name := range Specializations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveClass maps a class name (profession or elite spec, any case)
// to its owning profession.
func ResolveClass(name string) (Profession, error) {
	cleaned := strings.TrimSpace(name)
	for key, prof := range Professions {
		if strings.EqualFold(key, cleaned) {
			return prof, nil
		}
	}
	for key, spec := range Specializations {
		if strings.EqualFold(key, cleaned) {
			return Professions[spec.Profession], nil
		}
	}
	return Profession{}, fmt.Errorf("unknown profession or specialization %q", name)
}

// ClassDisplay canonicalises the spelling of a known class name and
// leaves unknown input as typed.
func ClassDisplay(name string) string {
	cleaned := strings.TrimSpace(name)
	for key := range Professions {
		if strings.EqualFold(key, cleaned) {
			return key
		}
	}
	for key := range Specializations {
		if strings.EqualFold(key, cleaned) {
			return key
		}
	}
	return cleaned
}

// WorldNames maps WvW world ids to display names. The 11xxx block is
// the post-restructuring team set.
var WorldNames = map[int]string{
	11001: "Moogooloo",
	11002: "Rall's Rest",
	11003: "Domain of Torment",
	11004: "Yohlon Haven",
	11005: "Tomb of Drascir",
	11006: "Hall of Judgment",
	11007: "Throne of Balthazar",
	11008: "Dwayna's Temple",
	11009: "Abaddon's Prison",
	11010: "Cathedral of Blood",
	11011: "Lutgardis Conservatory",
	11012: "Mosswood",

	1001: "Anvil Rock",
	1002: "Borlis Pass",
	1003: "Yak's Bend",
	1004: "Henge of Denravi",
	1005: "Maguuma",
	1006: "Sorrow's Furnace",
	1007: "Gate of Madness",
	1008: "Jade Quarry",
	1009: "Fort Aspenwood",
	1010: "Ehmry Bay",
	1011: "Stormbluff Isle",
	1012: "Darkhaven",
	1013: "Sanctum of Rall",
	1014: "Crystal Desert",
	1015: "Isle of Janthir",
	1016: "Sea of Sorrows",
	1017: "Tarnished Coast",
	1018: "Northern Shiverpeaks",
	1019: "Blackgate",
	1020: "Ferguson's Crossing",
	1021: "Dragonbrand",
	1022: "Kaineng",
	1023: "Devona's Rest",
	1024: "Eredon Terrace",

	2001: "Fissure of Woe",
	2002: "Desolation",
	2003: "Gandara",
	2004: "Blacktide",
	2005: "Ring of Fire",
	2006: "Underworld",
	2007: "Far Shiverpeaks",
	2008: "Whiteside Ridge",
	2009: "Ruins of Surmia",
	2010: "Seafarer's Rest",
	2011: "Vabbi",
	2012: "Piken Square",
	2013: "Aurora Glade",
	2014: "Gunnar's Hold",

	2101: "Jade Sea [FR]",
	2102: "Fort Ranik [FR]",
	2103: "Augury Rock [FR]",
	2104: "Vizunah Square [FR]",
	2105: "Arborstone [FR]",

	2201: "Kodash [DE]",
	2202: "Riverside [DE]",
	2203: "Elona Reach [DE]",
	2204: "Abaddon's Mouth [DE]",
	2205: "Drakkar Lake [DE]",
	2206: "Miller's Sound [DE]",
	2207: "Dzagonur [DE]",

	2301: "Baruch Bay [SP]",
}

// WorldName falls back to "World <id>" for ids the map has not caught
// up with yet.
func WorldName(id int) string {
	if name, ok := WorldNames[id]; ok {
		return name
	}
	return fmt.Sprintf("World %d", id)
}

// AllianceSheetTab names the community roster spreadsheet tab for a
// WvW team world. Tabs are labelled with the team name, so only the
// restructured 11xxx worlds have one.
func AllianceSheetTab(worldID int) (string, bool) {
	if worldID < 11000 {
		return "", false
	}
	name, ok := WorldNames[worldID]
	return name, ok
}
