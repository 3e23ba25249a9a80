package authz

import "github.com/eduvance/trading-academy-api/internal/models"

// Canonical learning-level labels. Rooms and user profiles store these
// lowercase values; display capitalization never reaches the comparison.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ValidLevel reports whether the label is one of the canonical levels.
func ValidLevel(label string) bool {
	switch label {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// ResolveLevel determines a user's effective learning level: the explicit
// learning level wins, then the trading level collected at onboarding, then
// beginner.
func ResolveLevel(learningLevel, tradingLevel *string) string {
	if learningLevel != nil && *learningLevel != "" {
		return *learningLevel
	}
	if tradingLevel != nil && *tradingLevel != "" {
		return *tradingLevel
	}
	return LevelBeginner
}

// CanAccessRoom decides community room access. Non-students see every room.
// Students need an exact, case-sensitive match between their level and the
// room's label; there is no hierarchy, so an advanced student cannot read
// the beginner room. An empty room label means the room is open to all.
func CanAccessRoom(role models.UserRole, userLevel, roomLevel string) bool {
	if role != models.RoleStudent {
		return true
	}
	if roomLevel == "" {
		return true
	}
	return userLevel == roomLevel
}
