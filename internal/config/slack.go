package config

// GetSlackBotToken returns the xoxb- bot token used for Web API calls.
func GetSlackBotToken() string {
	return GetEnvOrDefault("SLACK_BOT_TOKEN", "")
}

// GetSlackAppToken returns the xapp- app-level token used for Socket Mode.
func GetSlackAppToken() string {
	return GetEnvOrDefault("SLACK_APP_TOKEN", "")
}
