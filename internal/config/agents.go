package config

// Agent aliases map short, user-facing names to the agents deployed in
// Snowflake. The "intelligence" agent has access to everything and is the
// default for mentions and /ask-acme.
const DefaultAgentAlias = "intelligence"

var agentAliases = map[string]string{
	"intelligence": "ACME_INTELLIGENCE_AGENT",
	"contracts":    "ACME_CONTRACTS_AGENT",
	"perf":         "DATA_ENGINEER_ASSISTANT",
}

// GetAgentName resolves an alias to the deployed agent name. Unknown
// aliases fall back to the default agent.
func GetAgentName(alias string) string {
	if name, ok := agentAliases[alias]; ok {
		return name
	}
	return agentAliases[DefaultAgentAlias]
}

// GetAgentAliases returns the known aliases.
func GetAgentAliases() []string {
	aliases := make([]string, 0, len(agentAliases))
	for alias := range agentAliases {
		aliases = append(aliases, alias)
	}
	return aliases
}
