package game

import (
	"fmt"

	"valhalla/pkg/sphere"
)

// FortressType determines a fortress's multipliers and the unit class it sends.
type FortressType int

const (
	TypeKeep FortressType = iota
	TypeGrainFarm
	TypeLivestockFarm
	TypeTower
	TypeLaboratory
	TypeBlacksmith
)

// FortressStats is the fixed stat record of a fortress type.
type FortressStats struct {
	Name  string
	Prob  float64 // Spawn weight at world generation
	Gen   float64 // Units produced per tick
	Cap   float64 // Production stops at this garrison
	Def   float64
	Atk   float64
	Class UnitClass
}

var fortressStats = [...]FortressStats{
	TypeKeep:          {Name: "Keep", Prob: 0.30, Gen: 1.0, Cap: 60, Def: 1.0, Atk: 1.0, Class: ClassSoldier},
	TypeGrainFarm:     {Name: "Grain Farm", Prob: 0.15, Gen: 2.0, Cap: 40, Def: 0.7, Atk: 0.8, Class: ClassSwarm},
	TypeLivestockFarm: {Name: "Livestock Farm", Prob: 0.15, Gen: 1.5, Cap: 40, Def: 0.8, Atk: 1.2, Class: ClassCavalry},
	TypeTower:         {Name: "Tower", Prob: 0.10, Gen: 0.5, Cap: 40, Def: 1.5, Atk: 1.5, Class: ClassRanged},
	TypeLaboratory:    {Name: "Laboratory", Prob: 0.15, Gen: 0.8, Cap: 50, Def: 1.2, Atk: 1.1, Class: ClassMage},
	TypeBlacksmith:    {Name: "Blacksmith", Prob: 0.15, Gen: 0.8, Cap: 80, Def: 1.4, Atk: 1.0, Class: ClassSiege},
}

// AllFortressTypes returns every fortress type in declaration order.
func AllFortressTypes() []FortressType {
	return []FortressType{TypeKeep, TypeGrainFarm, TypeLivestockFarm, TypeTower, TypeLaboratory, TypeBlacksmith}
}

// Stats returns the stat record for the type.
func (t FortressType) Stats() FortressStats {
	if t < 0 || int(t) >= len(fortressStats) {
		return fortressStats[TypeKeep]
	}
	return fortressStats[t]
}

func (t FortressType) String() string {
	return t.Stats().Name
}

// IsFarm reports whether the type is an economic target for the AI.
func (t FortressType) IsFarm() bool {
	return t == TypeGrainFarm || t == TypeLivestockFarm
}

// ParseFortressType looks up a fortress type by name.
func ParseFortressType(name string) (FortressType, error) {
	for _, t := range AllFortressTypes() {
		if t.String() == name {
			return t, nil
		}
	}
	return TypeKeep, fmt.Errorf("unknown fortress type %q", name)
}

func (t FortressType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FortressType) UnmarshalText(b []byte) error {
	parsed, err := ParseFortressType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Race is a faction's people. Neutral holds unclaimed fortresses.
type Race int

const (
	RaceNeutral Race = iota
	RaceHuman
	RaceOrc
	RaceDarkElf
	RaceTroll
)

// RaceStats is the fixed stat record of a race.
type RaceStats struct {
	Name  string
	Color uint32
	Atk   float64
	Def   float64
	Speed float64
}

var raceStats = [...]RaceStats{
	RaceNeutral: {Name: "Neutral", Color: 0x888888, Atk: 0.5, Def: 1.0, Speed: 1.0},
	RaceHuman:   {Name: "Human", Color: 0x3366ff, Atk: 1.0, Def: 1.0, Speed: 1.0},
	RaceOrc:     {Name: "Orc", Color: 0xff3333, Atk: 1.4, Def: 0.7, Speed: 1.2},
	RaceDarkElf: {Name: "Dark Elf", Color: 0x9933ff, Atk: 1.1, Def: 0.9, Speed: 1.4},
	RaceTroll:   {Name: "Troll", Color: 0x00cc66, Atk: 0.9, Def: 1.4, Speed: 0.8},
}

// PlayableRaces returns the races a faction may pick.
func PlayableRaces() []Race {
	return []Race{RaceHuman, RaceOrc, RaceDarkElf, RaceTroll}
}

func (r Race) Stats() RaceStats {
	if r < 0 || int(r) >= len(raceStats) {
		return raceStats[RaceNeutral]
	}
	return raceStats[r]
}

func (r Race) String() string {
	return r.Stats().Name
}

// ParseRace looks up a race by name.
func ParseRace(name string) (Race, error) {
	for i := range raceStats {
		if raceStats[i].Name == name {
			return Race(i), nil
		}
	}
	return RaceNeutral, fmt.Errorf("unknown race %q", name)
}

func (r Race) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Race) UnmarshalText(b []byte) error {
	parsed, err := ParseRace(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnitClass sets how a packet fares against other packets and against fortresses.
type UnitClass int

const (
	ClassSoldier UnitClass = iota
	ClassSwarm
	ClassCavalry
	ClassRanged
	ClassMage
	ClassSiege
	ClassHero
	ClassTitan
)

// Target kinds for class multipliers.
const (
	VsUnit     = "Unit"
	VsFortress = "Fortress"
)

// ClassStats is the fixed stat record of a unit class.
type ClassStats struct {
	Name       string
	VsUnit     float64
	VsFortress float64
	Speed      float64
}

var classStats = [...]ClassStats{
	ClassSoldier: {Name: "Soldier", VsUnit: 1.0, VsFortress: 1.0, Speed: 1.0},
	ClassSwarm:   {Name: "Swarm", VsUnit: 0.8, VsFortress: 1.2, Speed: 1.0},
	ClassCavalry: {Name: "Cavalry", VsUnit: 1.0, VsFortress: 0.8, Speed: 1.0},
	ClassRanged:  {Name: "Ranged", VsUnit: 1.5, VsFortress: 0.8, Speed: 1.0},
	ClassMage:    {Name: "Mage", VsUnit: 1.2, VsFortress: 1.2, Speed: 1.0},
	ClassSiege:   {Name: "Siege", VsUnit: 0.5, VsFortress: 3.0, Speed: 1.0},
	ClassHero:    {Name: "Hero", VsUnit: 2.0, VsFortress: 0.5, Speed: 1.0},
	ClassTitan:   {Name: "Titan", VsUnit: 1.0, VsFortress: 4.0, Speed: 0.5},
}

func (c UnitClass) Stats() ClassStats {
	if c < 0 || int(c) >= len(classStats) {
		return classStats[ClassSoldier]
	}
	return classStats[c]
}

func (c UnitClass) String() string {
	return c.Stats().Name
}

// Multiplier returns the class's multiplier against a target kind.
func (c UnitClass) Multiplier(target string) float64 {
	if target == VsFortress {
		return c.Stats().VsFortress
	}
	return c.Stats().VsUnit
}

func ParseUnitClass(name string) (UnitClass, error) {
	for i := range classStats {
		if classStats[i].Name == name {
			return UnitClass(i), nil
		}
	}
	return ClassSoldier, fmt.Errorf("unknown unit class %q", name)
}

func (c UnitClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *UnitClass) UnmarshalText(b []byte) error {
	parsed, err := ParseUnitClass(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SpecialUnit describes a sanctuary spawn.
type SpecialUnit struct {
	Kind     PacketKind
	Class    UnitClass
	Atk      float64
	Size     float64
	Cooldown int // Ticks between spawns
}

var (
	Hero  = SpecialUnit{Kind: PacketHero, Class: ClassHero, Atk: 3.0, Size: 15, Cooldown: 50}
	Titan = SpecialUnit{Kind: PacketTitan, Class: ClassTitan, Atk: 5.0, Size: 30, Cooldown: 100}
)

// TerrainBonus is the contribution of one incident face to a fortress.
type TerrainBonus struct {
	Gen float64
	Cap float64
	Atk float64
	Def float64
}

func (b TerrainBonus) add(o TerrainBonus) TerrainBonus {
	return TerrainBonus{Gen: b.Gen + o.Gen, Cap: b.Cap + o.Cap, Atk: b.Atk + o.Atk, Def: b.Def + o.Def}
}

var terrainBonuses = map[sphere.Terrain]TerrainBonus{
	sphere.TerrainMountain: {Def: 0.2, Atk: 0.1},
	sphere.TerrainLava:     {Atk: 0.2, Def: -0.1},
	sphere.TerrainForest:   {Gen: 0.1},
	sphere.TerrainHill:     {Def: 0.1},
	sphere.TerrainSwamp:    {Def: 0.3, Gen: -0.1},
	sphere.TerrainFarm:     {Gen: 0.3, Cap: 20},
	sphere.TerrainWaste:    {Cap: -10, Atk: 0.1},
	sphere.TerrainDeepSea:  {Def: 0.5},
	sphere.TerrainSea:      {Gen: 0.05},
}

// BonusFor returns the bonus a single face of the terrain grants.
func BonusFor(t sphere.Terrain) TerrainBonus {
	return terrainBonuses[t]
}

var defaultBuildOptions = []FortressType{TypeKeep}

var terrainBuildOptions = map[sphere.Terrain][]FortressType{
	sphere.TerrainWaste:    {TypeKeep},
	sphere.TerrainMountain: {TypeKeep, TypeTower, TypeLaboratory, TypeBlacksmith},
	sphere.TerrainSwamp:    {TypeKeep, TypeLaboratory},
	sphere.TerrainLava:     {TypeKeep, TypeBlacksmith},
	sphere.TerrainDeepSea:  {TypeKeep},
	sphere.TerrainSea:      {TypeKeep},
	sphere.TerrainPlain:    {TypeKeep, TypeGrainFarm, TypeLivestockFarm, TypeTower},
	sphere.TerrainForest:   {TypeKeep, TypeLivestockFarm, TypeTower},
	sphere.TerrainHill:     {TypeKeep, TypeTower, TypeBlacksmith},
	sphere.TerrainFarm:     {TypeGrainFarm, TypeLivestockFarm},
}

// BuildOptions returns the fortress types a single terrain allows.
func BuildOptions(t sphere.Terrain) []FortressType {
	if opts, ok := terrainBuildOptions[t]; ok {
		return opts
	}
	return defaultBuildOptions
}

// LegalTypes returns the union of build options over the touching terrains, in
// declaration order.
func LegalTypes(touch []sphere.Terrain) []FortressType {
	allowed := make(map[FortressType]bool)
	for _, t := range touch {
		for _, ft := range BuildOptions(t) {
			allowed[ft] = true
		}
	}
	if len(allowed) == 0 {
		return defaultBuildOptions
	}
	out := make([]FortressType, 0, len(allowed))
	for _, ft := range AllFortressTypes() {
		if allowed[ft] {
			out = append(out, ft)
		}
	}
	return out
}

// Difficulty selects an AI profile.
type Difficulty int

const (
	DifficultyVeryEasy Difficulty = iota
	DifficultyEasy
	DifficultyNormal
	DifficultyHard
	DifficultyVeryHard
)

// Profile is the behavior record of a difficulty.
type Profile struct {
	Name          string
	ExpandBias    float64
	ReactionDelay int
}

var profiles = [...]Profile{
	DifficultyVeryEasy: {Name: "Very Easy", ExpandBias: 0.1, ReactionDelay: 4},
	DifficultyEasy:     {Name: "Easy", ExpandBias: 0.3, ReactionDelay: 3},
	DifficultyNormal:   {Name: "Normal", ExpandBias: 0.5, ReactionDelay: 1},
	DifficultyHard:     {Name: "Hard", ExpandBias: 0.8, ReactionDelay: 0},
	DifficultyVeryHard: {Name: "Very Hard", ExpandBias: 1.0, ReactionDelay: 0},
}

func (d Difficulty) Profile() Profile {
	if d < 0 || int(d) >= len(profiles) {
		return profiles[DifficultyNormal]
	}
	return profiles[d]
}

func (d Difficulty) String() string {
	return d.Profile().Name
}

func ParseDifficulty(name string) (Difficulty, error) {
	for i := range profiles {
		if profiles[i].Name == name {
			return Difficulty(i), nil
		}
	}
	return DifficultyNormal, fmt.Errorf("unknown difficulty %q", name)
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(b []byte) error {
	parsed, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// darken scales each channel of a color.
func darken(color uint32, factor float64) uint32 {
	r := uint32(float64((color>>16)&0xFF) * factor)
	g := uint32(float64((color>>8)&0xFF) * factor)
	b := uint32(float64(color&0xFF) * factor)
	return r<<16 | g<<8 | b
}
