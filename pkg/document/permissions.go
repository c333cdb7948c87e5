package document

// Level is a document access level. Levels form a strict total order:
// None < Limited < Observer < Owner.
type Level int

// Access levels consumed by the registry's threshold checks.
const (
	LevelNone Level = iota
	LevelLimited
	LevelObserver
	LevelOwner
)

var levelNames = map[Level]string{
	LevelNone:     "none",
	LevelLimited:  "limited",
	LevelObserver: "observer",
	LevelOwner:    "owner",
}

// String returns the lowercase level name, or "none" for unknown values.
func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "none"
}

// ParseLevel converts a level name to a Level. Unknown names map to LevelNone.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if name == s {
			return l
		}
	}
	return LevelNone
}

// PermissionMap assigns access levels to principals, with a fallback default.
type PermissionMap struct {
	Default Level            `json:"default" bson:"default"`
	Users   map[string]Level `json:"users,omitempty" bson:"users,omitempty"`
}

// NewPermissionMap creates a permission map seeding the creator with
// owner-level access.
func NewPermissionMap(creator string) PermissionMap {
	p := PermissionMap{Default: LevelNone, Users: map[string]Level{}}
	if creator != "" {
		p.Users[creator] = LevelOwner
	}
	return p
}

// Effective returns the level in force for a principal: the explicit
// per-principal override if present, else the default.
func (p PermissionMap) Effective(principal string) Level {
	if l, ok := p.Users[principal]; ok {
		return l
	}
	return p.Default
}

// Grant sets an explicit level for a principal.
func (p *PermissionMap) Grant(principal string, level Level) {
	if p.Users == nil {
		p.Users = map[string]Level{}
	}
	p.Users[principal] = level
}

// Clone returns a deep copy of the permission map.
func (p PermissionMap) Clone() PermissionMap {
	out := PermissionMap{Default: p.Default}
	if p.Users != nil {
		out.Users = make(map[string]Level, len(p.Users))
		for k, v := range p.Users {
			out.Users[k] = v
		}
	}
	return out
}
