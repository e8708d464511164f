package reconcile

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/normalize"
)

// Room maps a source room tag to the target office and resource.
type Room struct {
	Tag      string `yaml:"tag" mapstructure:"tag" json:"tag"`
	Office   string `yaml:"office" mapstructure:"office" json:"office"`
	Resource string `yaml:"resource" mapstructure:"resource" json:"resource"`
}

// Person maps a source person tag to the office the person belongs to.
type Person struct {
	Tag    string `yaml:"tag" mapstructure:"tag" json:"tag"`
	Office string `yaml:"office" mapstructure:"office" json:"office"`
}

// WeekdayRule rewrites resolved identities of meetings starting on the
// selected weekdays. Mask bit 0 is Monday and bit 6 is Sunday; Days lists
// weekday names and is merged into Mask.
type WeekdayRule struct {
	Mask    int      `yaml:"mask" mapstructure:"mask" json:"mask,omitempty"`
	Days    []string `yaml:"days" mapstructure:"days" json:"days,omitempty"`
	Pattern string   `yaml:"pattern" mapstructure:"pattern" json:"pattern"`
	Replace string   `yaml:"replace" mapstructure:"replace" json:"replace"`
}

// Rules is the engine configuration as written by operators.
type Rules struct {
	SourceOrigin string `yaml:"source_origin" mapstructure:"source_origin" json:"source_origin"`
	TargetOrigin string `yaml:"target_origin" mapstructure:"target_origin" json:"target_origin"`

	Rooms   []Room   `yaml:"rooms" mapstructure:"rooms" json:"rooms"`
	Persons []Person `yaml:"persons" mapstructure:"persons" json:"persons"`

	NoRoom   string `yaml:"no_room" mapstructure:"no_room" json:"no_room"`
	NoPerson string `yaml:"no_person" mapstructure:"no_person" json:"no_person"`

	Eject         []string      `yaml:"eject" mapstructure:"eject" json:"eject,omitempty"`
	Weekday       []WeekdayRule `yaml:"weekday" mapstructure:"weekday" json:"weekday,omitempty"`
	DeleteMarkers []string      `yaml:"delete_markers" mapstructure:"delete_markers" json:"delete_markers,omitempty"`
	Skip          string        `yaml:"skip" mapstructure:"skip" json:"skip,omitempty"`

	// AutomationMenu marks target bookings created by syncals. Only those
	// are ever deleted; an empty marker disables deletes.
	AutomationMenu string `yaml:"automation_menu" mapstructure:"automation_menu" json:"automation_menu"`

	// KnownResources lists target resource names used to detect bookings whose
	// resource and person fields came back swapped. Room resources and the
	// no-room placeholder are always known.
	KnownResources []string `yaml:"known_resources" mapstructure:"known_resources" json:"known_resources,omitempty"`

	MinDuration        int  `yaml:"min_duration" mapstructure:"min_duration" json:"min_duration"` // seconds
	CompareLength      int  `yaml:"compare_length" mapstructure:"compare_length" json:"compare_length"`
	CompareDescription bool `yaml:"compare_description" mapstructure:"compare_description" json:"compare_description"`
	DeletesFirst       bool `yaml:"deletes_first" mapstructure:"deletes_first" json:"deletes_first"`

	Separator       string `yaml:"separator" mapstructure:"separator" json:"separator,omitempty"`
	TargetSeparator string `yaml:"target_separator" mapstructure:"target_separator" json:"target_separator,omitempty"`
	Encoding        string `yaml:"encoding" mapstructure:"encoding" json:"encoding,omitempty"`
	Fallback        string `yaml:"fallback" mapstructure:"fallback" json:"fallback,omitempty"`
}

// DefaultRules returns rules with every optional setting at its default.
func DefaultRules() *Rules {
	return &Rules{
		SourceOrigin:       constants.DefaultSourceOrigin,
		TargetOrigin:       constants.DefaultTargetOrigin,
		NoRoom:             constants.DefaultNoRoom,
		NoPerson:           constants.DefaultNoPerson,
		MinDuration:        int(constants.DefaultMinDuration / time.Second),
		CompareLength:      constants.DefaultCompareLength,
		CompareDescription: true,
		Separator:          constants.DefaultSubjectSeparator,
		TargetSeparator:    constants.DefaultTargetSeparator,
	}
}

// LoadRules reads rules from a YAML file on top of DefaultRules.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return r, nil
}

// ParseRules decodes YAML rules on top of DefaultRules.
func ParseRules(data []byte) (*Rules, error) {
	r := DefaultRules()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

type roomEntry struct {
	Room
	index int
}

type personEntry struct {
	Person
	index int
}

type rewrite struct {
	mask    int
	re      *regexp.Regexp
	replace string
}

// Ruleset is the compiled, immutable form of Rules. It is safe for
// concurrent use.
type Ruleset struct {
	rules    Rules
	rooms    map[string]roomEntry
	persons  map[string]personEntry
	known    map[string]struct{}
	skip     *regexp.Regexp
	rewrites []rewrite
	minDur   time.Duration
	norm     *normalize.Normalizer
}

// Compile checks the rules and builds lookup tables.
// Tags without an office or resource compile; meetings that reference them
// fail resolution individually.
func (r *Rules) Compile() (*Ruleset, error) {
	rules := *r
	applyDefaults(&rules)

	if rules.MinDuration < 0 {
		return nil, errors.NewValidationError("min_duration", rules.MinDuration, "must not be negative")
	}
	if rules.CompareLength < 0 {
		return nil, errors.NewValidationError("compare_length", rules.CompareLength, "must not be negative")
	}
	if rules.SourceOrigin == rules.TargetOrigin {
		return nil, errors.NewValidationError("target_origin", rules.TargetOrigin, "must differ from source_origin")
	}

	rs := &Ruleset{
		rules:   rules,
		rooms:   make(map[string]roomEntry, len(rules.Rooms)),
		persons: make(map[string]personEntry, len(rules.Persons)),
		known:   make(map[string]struct{}),
		minDur:  time.Duration(rules.MinDuration) * time.Second,
	}

	for i, room := range rules.Rooms {
		if room.Tag == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("rooms[%d].tag", i), room, "cannot be empty")
		}
		if _, dup := rs.rooms[room.Tag]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("rooms[%d].tag", i), room.Tag, "duplicate room tag")
		}
		rs.rooms[room.Tag] = roomEntry{Room: room, index: i}
		if room.Resource != "" {
			rs.known[room.Resource] = struct{}{}
		}
	}
	for i, p := range rules.Persons {
		if p.Tag == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("persons[%d].tag", i), p, "cannot be empty")
		}
		if _, dup := rs.persons[p.Tag]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("persons[%d].tag", i), p.Tag, "duplicate person tag")
		}
		rs.persons[p.Tag] = personEntry{Person: p, index: i}
	}
	rs.known[rules.NoRoom] = struct{}{}
	for _, res := range rules.KnownResources {
		rs.known[res] = struct{}{}
	}

	if rules.Skip != "" {
		re, err := regexp.Compile(`^(?:` + rules.Skip + `)`)
		if err != nil {
			return nil, errors.WrapValidation("skip", err)
		}
		rs.skip = re
	}

	for i, w := range rules.Weekday {
		mask, err := weekdayMask(w)
		if err != nil {
			return nil, errors.WrapValidation(fmt.Sprintf("weekday[%d].days", i), err)
		}
		re, err := regexp.Compile(w.Pattern)
		if err != nil {
			return nil, errors.WrapValidation(fmt.Sprintf("weekday[%d].pattern", i), err)
		}
		rs.rewrites = append(rs.rewrites, rewrite{mask: mask, re: re, replace: w.Replace})
	}

	enc, err := lookupEncoding(rules.Encoding)
	if err != nil {
		return nil, errors.WrapValidation("encoding", err)
	}
	opts := []normalize.Option{normalize.WithEncoding(enc)}
	if rules.Fallback != "" {
		fb := []rune(rules.Fallback)
		opts = append(opts, normalize.WithFallback(fb[0]))
	}
	rs.norm = normalize.New(opts...)

	return rs, nil
}

// MustCompile is like Compile but panics on invalid rules.
func (r *Rules) MustCompile() *Ruleset {
	rs, err := r.Compile()
	if err != nil {
		panic(err)
	}
	return rs
}

func applyDefaults(r *Rules) {
	d := DefaultRules()
	if r.SourceOrigin == "" {
		r.SourceOrigin = d.SourceOrigin
	}
	if r.TargetOrigin == "" {
		r.TargetOrigin = d.TargetOrigin
	}
	if r.NoRoom == "" {
		r.NoRoom = d.NoRoom
	}
	if r.NoPerson == "" {
		r.NoPerson = d.NoPerson
	}
	if r.Separator == "" {
		r.Separator = d.Separator
	}
	if r.TargetSeparator == "" {
		r.TargetSeparator = d.TargetSeparator
	}
}

// Validate reports configuration that compiles but will fail or misbehave at
// resolution time.
func (r *Rules) Validate() Diagnostics {
	rules := *r
	applyDefaults(&rules)

	var diags Diagnostics
	warn := func(err error, msg string) {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindConfig, Message: msg, Err: err})
	}

	persons := make(map[string]bool, len(rules.Persons))
	for _, p := range rules.Persons {
		persons[p.Tag] = true
		if p.Office == "" {
			warn(&errors.MappingError{Kind: "person", Tag: p.Tag, Field: "office"}, "person without office")
		}
	}
	for _, room := range rules.Rooms {
		if room.Office == "" {
			warn(&errors.MappingError{Kind: "room", Tag: room.Tag, Field: "office"}, "room without office")
		}
		if room.Resource == "" {
			warn(&errors.MappingError{Kind: "room", Tag: room.Tag, Field: "resource"}, "room without resource")
		}
		if persons[room.Tag] {
			warn(nil, fmt.Sprintf("tag %q is both a room and a person; it is classified as a room", room.Tag))
		}
		if strings.Contains(room.Office, rules.Separator) || strings.Contains(room.Resource, rules.Separator) {
			warn(nil, fmt.Sprintf("room %q contains the subject separator %q", room.Tag, rules.Separator))
		}
	}
	for _, p := range rules.Persons {
		if strings.Contains(p.Tag, rules.Separator) || strings.Contains(p.Office, rules.Separator) {
			warn(nil, fmt.Sprintf("person %q contains the subject separator %q", p.Tag, rules.Separator))
		}
	}
	if rules.AutomationMenu == "" {
		warn(nil, "automation_menu is empty; orphaned bookings will never be deleted")
	}
	return diags
}

// Rules returns a copy of the rules the set was compiled from, with defaults applied.
func (rs *Ruleset) Rules() Rules {
	return rs.rules
}

// Normalizer returns the text normalizer for the target repertoire.
func (rs *Ruleset) Normalizer() *normalize.Normalizer {
	return rs.norm
}

// MinDuration is the shortest interval a booking may have.
func (rs *Ruleset) MinDuration() time.Duration {
	return rs.minDur
}

// Separator joins resolved identity components.
func (rs *Ruleset) Separator() string {
	return rs.rules.Separator
}

func (rs *Ruleset) isKnownResource(s string) bool {
	_, ok := rs.known[s]
	return ok
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func weekdayMask(w WeekdayRule) (int, error) {
	if w.Mask < 0 || w.Mask > 0x7f {
		return 0, fmt.Errorf("mask %#x out of range", w.Mask)
	}
	mask := w.Mask
	for _, name := range w.Days {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", name)
		}
		mask |= WeekdayMask(day)
	}
	return mask, nil
}

// WeekdayMask returns the bitmask selecting the given weekdays.
// Bit 0 is Monday and bit 6 is Sunday.
func WeekdayMask(days ...time.Weekday) int {
	mask := 0
	for _, d := range days {
		mask |= 1 << weekdayBit(d)
	}
	return mask
}

func weekdayBit(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "shift-jis", "sjis", "cp932":
		return japanese.ShiftJIS, nil
	case "euc-jp":
		return japanese.EUCJP, nil
	case "iso-2022-jp":
		return japanese.ISO2022JP, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
