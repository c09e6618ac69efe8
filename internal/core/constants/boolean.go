package constants

// Tokens recognised by util.ParseBool, compared in lower case
var (
	TruthyTokens = []string{"true", "t", "yes", "y", "on"}
	FalsyTokens  = []string{"false", "f", "no", "n", "off"}
)
