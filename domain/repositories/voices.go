package repositories

// VoiceAssigner picks an unused voice identifier for a character role.
// Pure function, no I/O; consumed once per character at scenario creation.
type VoiceAssigner func(role string, used map[string]bool) string
