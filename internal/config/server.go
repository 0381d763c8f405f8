package config

// GetServerAddr returns the listen address for the health/debug HTTP server.
func GetServerAddr() string {
	return GetEnvOrDefault("SERVER_ADDR", ":8080")
}
